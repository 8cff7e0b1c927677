package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tbourn/go-feedback-responder/internal/generation"
	"github.com/tbourn/go-feedback-responder/internal/marketplace"
)

// timeoutErr implements net.Error.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient_Classification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"marketplace 429", &marketplace.APIError{Marketplace: "wildberries", Op: "list feedbacks", Status: 429}, true},
		{"marketplace 503", &marketplace.APIError{Marketplace: "yandex_market", Op: "submit reply", Status: 503}, true},
		{"marketplace 400", &marketplace.APIError{Marketplace: "wildberries", Op: "submit reply", Status: 400}, false},
		{"marketplace 403", &marketplace.APIError{Marketplace: "yandex_market", Op: "list campaigns", Status: 403}, false},
		{"generation 429", &generation.APIError{Status: 429, Body: "rate limit"}, true},
		{"generation 500", &generation.APIError{Status: 500}, true},
		{"generation 400", &generation.APIError{Status: 400, Body: "policy"}, false},
		{"empty completion", generation.ErrEmptyCompletion, false},
		{"wrapped gateway error", fmt.Errorf("draft: %w", &generation.APIError{Status: 502}), true},
		{"net timeout", timeoutErr{}, true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

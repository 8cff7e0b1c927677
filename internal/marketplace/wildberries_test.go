package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/tbourn/go-feedback-responder/internal/domain"
)

// newWBClient points a WildberriesClient at the test server with the
// throttle disabled.
func newWBClient(srv *httptest.Server) *WildberriesClient {
	c := NewWildberriesClient()
	c.BaseURL = srv.URL
	c.HTTP = srv.Client()
	c.Limiter = rate.NewLimiter(rate.Inf, 0)
	return c
}

func wbAccount() *domain.Account {
	return &domain.Account{ID: "acc-1", Name: "main", Marketplace: Wildberries, Token: "secret-token"}
}

func TestWildberries_ListUnanswered_PaginatesUntilEmptyPage(t *testing.T) {
	rating5 := 5
	pages := map[string][]wbFeedback{
		"0": {
			{
				ID:               "fb-1",
				Text:             "Отличный товар",
				Pros:             "быстрая доставка",
				ProductValuation: &rating5,
				UserName:         "Анна",
				CreatedDate:      "2024-05-01T10:30:00+03:00",
			},
		},
		"1": {
			{ID: "fb-2", Text: "норм"},
		},
		"2": {},
	}

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/feedbacks" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if got := r.URL.Query().Get("isAnswered"); got != "false" {
			t.Fatalf("isAnswered = %q; want false", got)
		}
		page := pages[r.URL.Query().Get("skip")]
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"feedbacks": page},
		})
	}))
	defer srv.Close()

	items, err := newWBClient(srv).ListUnanswered(context.Background(), wbAccount())
	if err != nil {
		t.Fatalf("ListUnanswered: %v", err)
	}
	if gotAuth != "secret-token" {
		t.Fatalf("Authorization = %q; want account token", gotAuth)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d; want 2", len(items))
	}
	first := items[0]
	if first.ExternalID != "fb-1" || first.AuthorName != "Анна" || first.Pros != "быстрая доставка" {
		t.Fatalf("unexpected first item: %+v", first)
	}
	if first.Rating == nil || *first.Rating != 5 {
		t.Fatalf("rating = %v; want 5", first.Rating)
	}
	want := time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC)
	if !first.CreatedAt.Equal(want) {
		t.Fatalf("CreatedAt = %v; want %v", first.CreatedAt, want)
	}
	if items[1].Rating != nil {
		t.Fatalf("missing productValuation should stay nil, got %v", *items[1].Rating)
	}
}

func TestWildberries_ListUnanswered_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newWBClient(srv).ListUnanswered(context.Background(), wbAccount())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusTooManyRequests || !apiErr.Temporary() {
		t.Fatalf("429 must be temporary: %+v", apiErr)
	}
}

func TestWildberries_ListUnanswered_ErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": true, "errorText": "token is blocked"})
	}))
	defer srv.Close()

	_, err := newWBClient(srv).ListUnanswered(context.Background(), wbAccount())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %v", err)
	}
	if apiErr.Temporary() {
		t.Fatalf("payload error on 200 must be permanent: %+v", apiErr)
	}
	if apiErr.Body != "token is blocked" {
		t.Fatalf("Body = %q", apiErr.Body)
	}
}

func TestWildberries_SubmitReply_SendsIDAndText(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/feedbacks/answer" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	res, err := newWBClient(srv).SubmitReply(context.Background(), wbAccount(), "fb-9", "Спасибо за отзыв!")
	if err != nil {
		t.Fatalf("SubmitReply: %v", err)
	}
	if res.ReplyID != nil {
		t.Fatalf("ReplyID = %v; the answer endpoint assigns none", *res.ReplyID)
	}
	if got["id"] != "fb-9" || got["text"] != "Спасибо за отзыв!" {
		t.Fatalf("request body = %v", got)
	}
}

func TestWildberries_SubmitReply_ServerErrorIsTemporary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newWBClient(srv).SubmitReply(context.Background(), wbAccount(), "fb-9", "text")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %v", err)
	}
	if !apiErr.Temporary() {
		t.Fatalf("5xx must be temporary: %+v", apiErr)
	}
}

func TestWildberries_GetProduct_Unsupported(t *testing.T) {
	c := NewWildberriesClient()
	if _, err := c.GetProduct(context.Background(), wbAccount(), "12345"); !errors.Is(err, ErrProductUnsupported) {
		t.Fatalf("want ErrProductUnsupported, got %v", err)
	}
}

func TestParseAPITime(t *testing.T) {
	if got := parseAPITime(""); !got.IsZero() {
		t.Fatalf("empty input should parse to zero time, got %v", got)
	}
	if got := parseAPITime("2024-01-25T14:02:55"); got.IsZero() {
		t.Fatalf("timezone-less timestamp should still parse")
	}
	if got := parseAPITime("not a date"); !got.IsZero() {
		t.Fatalf("garbage should parse to zero time, got %v", got)
	}
}

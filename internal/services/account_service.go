// Package services – AccountService
//
// This file implements the AccountService, which manages the marketplace
// accounts the responder polls. Accounts are provisioned from configuration
// at startup (Provision upserts by unique name, so restarts are idempotent);
// at runtime the admin surface may flip the auto-reply and active flags.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-feedback-responder/internal/domain"
	"github.com/tbourn/go-feedback-responder/internal/marketplace"
	"github.com/tbourn/go-feedback-responder/internal/repo"
)

// AccountService manages marketplace accounts.
type AccountService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{DB: db}
}

// Provision upserts one account by its unique name, updating the token and
// marketplace in place. Called once per configured account at startup.
func (s *AccountService) Provision(ctx context.Context, name, mk, token string) (*domain.Account, error) {
	tr := otel.Tracer("services/AccountService")
	ctx, span := tr.Start(ctx, "Provision",
		trace.WithAttributes(attribute.String("account.name", name)),
	)
	defer span.End()

	name = strings.TrimSpace(name)
	token = strings.TrimSpace(token)
	if name == "" || token == "" {
		return nil, ErrValidation
	}
	switch mk {
	case marketplace.Wildberries, marketplace.YandexMarket:
	default:
		return nil, ErrUnsupportedMarketplace
	}
	return repo.UpsertAccount(ctx, s.DB, name, mk, token)
}

// List returns all accounts, active or not, ordered by name.
func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	return repo.ListAccounts(ctx, s.DB)
}

// Get returns one account by id.
func (s *AccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	acc, err := repo.GetAccount(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return acc, nil
}

// SetAutoReply flips whether high-rated feedback of this account bypasses
// human review. Takes effect from the next cycle's settings snapshot.
func (s *AccountService) SetAutoReply(ctx context.Context, id string, enabled bool) (*domain.Account, error) {
	tr := otel.Tracer("services/AccountService")
	ctx, span := tr.Start(ctx, "SetAutoReply",
		trace.WithAttributes(
			attribute.String("account.id", id),
			attribute.Bool("enabled", enabled),
		),
	)
	defer span.End()

	if err := repo.SetAutoReply(ctx, s.DB, id, enabled); err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

// SetActive includes or excludes the account from polling.
func (s *AccountService) SetActive(ctx context.Context, id string, active bool) (*domain.Account, error) {
	tr := otel.Tracer("services/AccountService")
	ctx, span := tr.Start(ctx, "SetActive",
		trace.WithAttributes(
			attribute.String("account.id", id),
			attribute.Bool("active", active),
		),
	)
	defer span.End()

	if err := repo.SetActive(ctx, s.DB, id, active); err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

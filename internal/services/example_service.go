// Package services – ExampleService
//
// This file implements the ExampleService, which curates the reference
// example corpus: (feedback, approved reply) pairs the prompt assembler
// offers to the generator as few-shot guidance. The pipeline only reads the
// corpus; all writes come from the admin surface or the seed command.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-feedback-responder/internal/domain"
	"github.com/tbourn/go-feedback-responder/internal/repo"
)

// ExampleService manages the reference example corpus.
type ExampleService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewExampleService constructs an ExampleService.
func NewExampleService(db *gorm.DB) *ExampleService {
	return &ExampleService{DB: db}
}

// Create stores a new example pair. Both texts are required; the product
// name and rating are optional ranking hints.
func (s *ExampleService) Create(ctx context.Context, productName string, rating *int, feedbackText, replyText string) (*domain.ReferenceExample, error) {
	tr := otel.Tracer("services/ExampleService")
	ctx, span := tr.Start(ctx, "Create")
	defer span.End()

	productName, feedbackText, replyText, err := cleanExample(productName, rating, feedbackText, replyText)
	if err != nil {
		return nil, err
	}
	return repo.CreateExample(ctx, s.DB, productName, rating, feedbackText, replyText)
}

// Get returns one example by id.
func (s *ExampleService) Get(ctx context.Context, id string) (*domain.ReferenceExample, error) {
	ex, err := repo.GetExample(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrExampleNotFound
		}
		return nil, err
	}
	return ex, nil
}

// ListPage returns a page of examples, newest first, plus the total count.
func (s *ExampleService) ListPage(ctx context.Context, page, pageSize int) ([]domain.ReferenceExample, int64, error) {
	tr := otel.Tracer("services/ExampleService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountExamples(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	rows, err := repo.ListExamplesPage(ctx, s.DB, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Update replaces the fields of an existing example.
func (s *ExampleService) Update(ctx context.Context, id, productName string, rating *int, feedbackText, replyText string) (*domain.ReferenceExample, error) {
	tr := otel.Tracer("services/ExampleService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.String("example.id", id)),
	)
	defer span.End()

	productName, feedbackText, replyText, err := cleanExample(productName, rating, feedbackText, replyText)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateExample(ctx, s.DB, id, productName, rating, feedbackText, replyText); err != nil {
		if isNotFound(err) {
			return nil, ErrExampleNotFound
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes an example so past prompt inputs stay auditable.
func (s *ExampleService) Delete(ctx context.Context, id string) error {
	tr := otel.Tracer("services/ExampleService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("example.id", id)),
	)
	defer span.End()

	if err := repo.DeleteExample(ctx, s.DB, id); err != nil {
		if isNotFound(err) {
			return ErrExampleNotFound
		}
		return err
	}
	return nil
}

// cleanExample trims and validates example fields.
func cleanExample(productName string, rating *int, feedbackText, replyText string) (string, string, string, error) {
	productName = strings.TrimSpace(productName)
	feedbackText = strings.TrimSpace(feedbackText)
	replyText = strings.TrimSpace(replyText)
	if feedbackText == "" || replyText == "" {
		return "", "", "", ErrValidation
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return "", "", "", ErrValidation
	}
	return productName, feedbackText, replyText, nil
}

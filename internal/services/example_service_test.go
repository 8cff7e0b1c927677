package services

import (
	"context"
	"errors"
	"testing"
)

func TestExampleLifecycle(t *testing.T) {
	db := newSvcDB(t)
	s := NewExampleService(db)
	ctx := context.Background()

	ex, err := s.Create(ctx, "  Кофта женская  ", intPtr(5), " Отличная кофта ", " Спасибо за отзыв! ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ex.ProductName != "Кофта женская" || ex.FeedbackText != "Отличная кофта" {
		t.Fatalf("fields not trimmed: %+v", ex)
	}

	got, err := s.Get(ctx, ex.ID)
	if err != nil || got.ID != ex.ID {
		t.Fatalf("Get = (%+v, %v)", got, err)
	}

	upd, err := s.Update(ctx, ex.ID, "Кофта", intPtr(4), "Хорошая кофта", "Благодарим!")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if upd.ReplyText != "Благодарим!" || upd.Rating == nil || *upd.Rating != 4 {
		t.Fatalf("update not applied: %+v", upd)
	}

	rows, total, err := s.ListPage(ctx, 1, 10)
	if err != nil || total != 1 || len(rows) != 1 {
		t.Fatalf("ListPage = (%d rows, total %d, %v)", len(rows), total, err)
	}

	if err := s.Delete(ctx, ex.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, ex.ID); !errors.Is(err, ErrExampleNotFound) {
		t.Fatalf("expected ErrExampleNotFound after delete, got %v", err)
	}

	_, total, err = s.ListPage(ctx, 1, 10)
	if err != nil || total != 0 {
		t.Fatalf("deleted example still listed: total=%d err=%v", total, err)
	}
}

func TestExampleValidation(t *testing.T) {
	db := newSvcDB(t)
	s := NewExampleService(db)
	ctx := context.Background()

	if _, err := s.Create(ctx, "", nil, "   ", "ответ"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank feedback, got %v", err)
	}
	if _, err := s.Create(ctx, "", nil, "отзыв", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank reply, got %v", err)
	}
	if _, err := s.Create(ctx, "", intPtr(9), "отзыв", "ответ"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for out-of-range rating, got %v", err)
	}

	if _, err := s.Update(ctx, "missing", "", nil, "отзыв", "ответ"); !errors.Is(err, ErrExampleNotFound) {
		t.Fatalf("expected ErrExampleNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "missing"); !errors.Is(err, ErrExampleNotFound) {
		t.Fatalf("expected ErrExampleNotFound, got %v", err)
	}
}

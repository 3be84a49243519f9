package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
)

func TestSavedViewRepositoryCreateGetDelete(t *testing.T) {
	t.Parallel()

	repo := NewSavedViewRepository()
	ctx := context.Background()
	view := domain.SavedView{
		ID:        "v-1",
		Name:      "German customers",
		Entity:    domain.EntityCustomers,
		Query:     "country=Germany&skip=0&take=10",
		CreatedAt: time.Now(),
	}

	if _, err := repo.Create(ctx, view); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := repo.Create(ctx, view); !errors.Is(err, domain.ErrViewExists) {
		t.Fatalf("expected ErrViewExists, got %v", err)
	}

	got, err := repo.Get(ctx, " v-1 ")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != view.Name || got.Query != view.Query {
		t.Fatalf("unexpected view: %+v", got)
	}
	if got.CreatedAt.Location() != time.UTC {
		t.Fatalf("created_at must be stored in UTC, got %s", got.CreatedAt.Location())
	}

	if err := repo.Delete(ctx, "v-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := repo.Delete(ctx, "v-1"); !errors.Is(err, domain.ErrViewNotFound) {
		t.Fatalf("expected ErrViewNotFound on second delete, got %v", err)
	}
	if _, err := repo.Get(ctx, "v-1"); !errors.Is(err, domain.ErrViewNotFound) {
		t.Fatalf("expected ErrViewNotFound, got %v", err)
	}
}

func TestSavedViewRepositoryListNewestFirst(t *testing.T) {
	t.Parallel()

	repo := NewSavedViewRepository()
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	seed := []domain.SavedView{
		{ID: "a", Entity: domain.EntityCustomers, Name: "a", CreatedAt: base},
		{ID: "b", Entity: domain.EntityOrders, Name: "b", CreatedAt: base.Add(time.Minute)},
		{ID: "c", Entity: domain.EntityCustomers, Name: "c", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "d", Entity: domain.EntityCustomers, Name: "d", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, v := range seed {
		if _, err := repo.Create(ctx, v); err != nil {
			t.Fatalf("create %s failed: %v", v.ID, err)
		}
	}

	customers, err := repo.List(ctx, domain.EntityCustomers)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(customers) != 3 {
		t.Fatalf("unexpected customers views: got=%d want=3", len(customers))
	}
	wantOrder := []string{"c", "d", "a"}
	for i, id := range wantOrder {
		if customers[i].ID != id {
			t.Fatalf("unexpected order at %d: got=%s want=%s", i, customers[i].ID, id)
		}
	}

	all, err := repo.List(ctx, "")
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("unexpected views count: got=%d want=4", len(all))
	}
}

// Package memory: in-memory хранилище сохранённых представлений для локальной разработки и тестов.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
)

type savedViewRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.SavedView
}

// NewSavedViewRepository возвращает пустой in-memory репозиторий.
func NewSavedViewRepository() domain.SavedViewRepository {
	return &savedViewRepositoryInMemory{
		items: make(map[string]domain.SavedView),
	}
}

// Create сохраняет представление, если id ещё не занят.
func (r *savedViewRepositoryInMemory) Create(_ context.Context, view domain.SavedView) (domain.SavedView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[view.ID]; exists {
		return domain.SavedView{}, domain.ErrViewExists
	}
	view.CreatedAt = view.CreatedAt.UTC()
	r.items[view.ID] = view
	return view, nil
}

func (r *savedViewRepositoryInMemory) Get(_ context.Context, id string) (domain.SavedView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	view, ok := r.items[strings.TrimSpace(id)]
	if !ok {
		return domain.SavedView{}, domain.ErrViewNotFound
	}
	return view, nil
}

// List возвращает представления сущности от новых к старым.
func (r *savedViewRepositoryInMemory) List(_ context.Context, entity domain.Entity) ([]domain.SavedView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.SavedView, 0, len(r.items))
	for _, view := range r.items {
		if entity != "" && view.Entity != entity {
			continue
		}
		result = append(result, view)
	}
	SortNewestFirst(result)
	return result, nil
}

func (r *savedViewRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id = strings.TrimSpace(id)
	if _, ok := r.items[id]; !ok {
		return domain.ErrViewNotFound
	}
	delete(r.items, id)
	return nil
}

// SortNewestFirst упорядочивает представления по убыванию даты создания, при равенстве по id.
func SortNewestFirst(views []domain.SavedView) {
	sort.Slice(views, func(i, j int) bool {
		if !views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].CreatedAt.After(views[j].CreatedAt)
		}
		return views[i].ID < views[j].ID
	})
}

// Package file хранит сохранённые представления в одном JSON-файле.
// Каждая запись переписывает файл атомарно.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
	"github.com/vladislavdragonenkov/ordersconsole/internal/storage/memory"
)

const filePerm = 0o600

type document struct {
	Views []domain.SavedView `json:"views"`
}

// SavedViewRepository: файловая реализация domain.SavedViewRepository.
type SavedViewRepository struct {
	mu   sync.Mutex
	path string
}

var _ domain.SavedViewRepository = (*SavedViewRepository)(nil)

// NewSavedViewRepository создаёт репозиторий; каталог файла создаётся при необходимости.
func NewSavedViewRepository(path string) (*SavedViewRepository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("saved views file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create saved views directory: %w", err)
	}
	repo := &SavedViewRepository{path: path}
	if _, err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

// Path возвращает путь к файлу хранилища.
func (r *SavedViewRepository) Path() string { return r.path }

func (r *SavedViewRepository) Create(_ context.Context, view domain.SavedView) (domain.SavedView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return domain.SavedView{}, err
	}
	for _, existing := range doc.Views {
		if existing.ID == view.ID {
			return domain.SavedView{}, domain.ErrViewExists
		}
	}
	view.CreatedAt = view.CreatedAt.UTC()
	doc.Views = append(doc.Views, view)
	if err := r.store(doc); err != nil {
		return domain.SavedView{}, err
	}
	return view, nil
}

func (r *SavedViewRepository) Get(_ context.Context, id string) (domain.SavedView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return domain.SavedView{}, err
	}
	id = strings.TrimSpace(id)
	for _, view := range doc.Views {
		if view.ID == id {
			return view, nil
		}
	}
	return domain.SavedView{}, domain.ErrViewNotFound
}

func (r *SavedViewRepository) List(_ context.Context, entity domain.Entity) ([]domain.SavedView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	result := make([]domain.SavedView, 0, len(doc.Views))
	for _, view := range doc.Views {
		if entity != "" && view.Entity != entity {
			continue
		}
		result = append(result, view)
	}
	memory.SortNewestFirst(result)
	return result, nil
}

func (r *SavedViewRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	for i, view := range doc.Views {
		if view.ID == id {
			doc.Views = append(doc.Views[:i], doc.Views[i+1:]...)
			return r.store(doc)
		}
	}
	return domain.ErrViewNotFound
}

// load читает файл; отсутствующий файл означает пустое хранилище.
func (r *SavedViewRepository) load() (document, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return document{}, nil
	}
	if err != nil {
		return document{}, fmt.Errorf("read saved views: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return document{}, nil
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return document{}, fmt.Errorf("decode saved views %s: %w", r.path, err)
	}
	return doc, nil
}

func (r *SavedViewRepository) store(doc document) error {
	if doc.Views == nil {
		doc.Views = []domain.SavedView{}
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode saved views: %w", err)
	}
	raw = append(raw, '\n')
	if err := atomic.WriteFile(r.path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("write saved views: %w", err)
	}
	// atomic.WriteFile не задаёт права для нового файла.
	if err := os.Chmod(r.path, filePerm); err != nil {
		return fmt.Errorf("chmod saved views: %w", err)
	}
	return nil
}

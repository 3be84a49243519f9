// Package views управляет сохранёнными представлениями списков.
package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
	"github.com/vladislavdragonenkov/ordersconsole/internal/search"
)

// Options задаёт зависимости сервиса.
type Options struct {
	Logger *log.Entry
	Audit  domain.AuditSink
	Now    func() time.Time
	NewID  func() string
}

// Option настраивает Service.
type Option func(*Options)

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) { opts.Logger = logger }
}

// WithAudit задаёт приёмник событий аудита.
func WithAudit(sink domain.AuditSink) Option {
	return func(opts *Options) { opts.Audit = sink }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(opts *Options) { opts.Now = now }
}

// WithIDGenerator подменяет генератор идентификаторов.
func WithIDGenerator(newID func() string) Option {
	return func(opts *Options) { opts.NewID = newID }
}

// Service сохраняет, перечисляет и удаляет представления.
type Service struct {
	repo   domain.SavedViewRepository
	audit  domain.AuditSink
	logger *log.Entry
	now    func() time.Time
	newID  func() string
}

// NewService создаёт сервис поверх репозитория.
func NewService(repo domain.SavedViewRepository, options ...Option) *Service {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "views")
	}
	if opts.Audit == nil {
		opts.Audit = domain.NopAuditSink{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	return &Service{
		repo:   repo,
		audit:  opts.Audit,
		logger: opts.Logger,
		now:    opts.Now,
		newID:  opts.NewID,
	}
}

// Save канонизирует запрос через схему сущности и сохраняет представление.
func (s *Service) Save(ctx context.Context, name string, entity domain.Entity, rawQuery string) (domain.SavedView, error) {
	name, err := domain.NormalizeViewName(name)
	if err != nil {
		return domain.SavedView{}, err
	}
	query, err := search.Canonicalize(entity, rawQuery)
	if err != nil {
		return domain.SavedView{}, fmt.Errorf("canonicalize %q: %w", entity, err)
	}

	view, err := s.repo.Create(ctx, domain.SavedView{
		ID:        s.newID(),
		Name:      name,
		Entity:    entity,
		Query:     query,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return domain.SavedView{}, fmt.Errorf("save view: %w", err)
	}

	s.logger.WithFields(log.Fields{"view_id": view.ID, "entity": entity, "query": query}).Info("view saved")
	s.audit.Record(ctx, domain.AuditEvent{
		Type:       domain.AuditViewSaved,
		Entity:     entity,
		Subject:    view.ID,
		Attributes: map[string]string{"name": view.Name, "query": view.Query},
		OccurredAt: view.CreatedAt,
	})
	return view, nil
}

// Get возвращает представление по id.
func (s *Service) Get(ctx context.Context, id string) (domain.SavedView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.SavedView{}, domain.ErrViewNotFound
	}
	return s.repo.Get(ctx, id)
}

// List возвращает представления сущности; пустая сущность означает все.
func (s *Service) List(ctx context.Context, entity domain.Entity) ([]domain.SavedView, error) {
	return s.repo.List(ctx, entity)
}

// Delete удаляет представление.
func (s *Service) Delete(ctx context.Context, id string) error {
	view, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, view.ID); err != nil {
		return err
	}

	s.logger.WithField("view_id", view.ID).Info("view deleted")
	s.audit.Record(ctx, domain.AuditEvent{
		Type:       domain.AuditViewDeleted,
		Entity:     view.Entity,
		Subject:    view.ID,
		Attributes: map[string]string{"name": view.Name},
		OccurredAt: s.now().UTC(),
	})
	return nil
}

// Package web: HTTP-интерфейс консоли: HTML-страницы списков и карточек, JSON API,
// сохранённые представления и управление кэшем.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersconsole/internal/auth"
	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
	"github.com/vladislavdragonenkov/ordersconsole/internal/search"
	"github.com/vladislavdragonenkov/ordersconsole/internal/service/catalog"
)

// Catalog: слой данных клиентов и заказов.
type Catalog interface {
	Customers(ctx context.Context, st search.State) (catalog.Result[domain.Customer], error)
	CustomersViaPost(ctx context.Context, st search.State) (catalog.Result[domain.Customer], error)
	Orders(ctx context.Context, st search.State) (catalog.Result[domain.Order], error)
	Customer(ctx context.Context, id string) (catalog.CustomerDetail, error)
	Order(ctx context.Context, id string) (domain.Order, error)
	Invalidate(entity domain.Entity) int
	Purge() int
}

// Views: сохранённые представления.
type Views interface {
	Save(ctx context.Context, name string, entity domain.Entity, rawQuery string) (domain.SavedView, error)
	Get(ctx context.Context, id string) (domain.SavedView, error)
	List(ctx context.Context, entity domain.Entity) ([]domain.SavedView, error)
	Delete(ctx context.Context, id string) error
}

// Observer получает метрики HTTP-запросов и ручных сбросов кэша.
type Observer interface {
	ObserveHTTP(route, method string, status int, d time.Duration)
	Invalidated(source string)
}

type nopObserver struct{}

func (nopObserver) ObserveHTTP(string, string, int, time.Duration) {}
func (nopObserver) Invalidated(string)                             {}

// Options задаёт необязательные зависимости сервера.
type Options struct {
	Logger    *log.Entry
	Observer  Observer
	Validator *auth.Validator
}

// Option настраивает Server.
type Option func(*Options)

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) { opts.Logger = logger }
}

// WithObserver задаёт приёмник метрик.
func WithObserver(observer Observer) Option {
	return func(opts *Options) { opts.Observer = observer }
}

// WithValidator включает проверку токенов операторов.
func WithValidator(v *auth.Validator) Option {
	return func(opts *Options) { opts.Validator = v }
}

// Server собирает маршруты консоли поверх echo.
type Server struct {
	echo     *echo.Echo
	catalog  Catalog
	views    Views
	observer Observer
	logger   *log.Entry
}

// NewServer регистрирует маршруты и middleware.
func NewServer(cat Catalog, views Views, options ...Option) (*Server, error) {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "http")
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}

	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	s := &Server{
		echo:     e,
		catalog:  cat,
		views:    views,
		observer: opts.Observer,
		logger:   opts.Logger,
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(requestID())
	e.Use(s.accessLog())
	e.Use(auth.Middleware(opts.Validator, opts.Logger.WithField("layer", "auth")))

	e.GET("/", func(c echo.Context) error { return c.Redirect(http.StatusSeeOther, "/customers") })
	e.GET("/customers", s.listCustomers)
	e.GET("/customers/:id", s.showCustomer)
	e.GET("/orders", s.listOrders)
	e.GET("/orders/:id", s.showOrder)

	e.GET("/views", s.listViews)
	e.POST("/views", s.saveView)
	e.GET("/views/:id", s.openView)
	e.POST("/views/:id/delete", s.deleteView)

	e.POST("/cache/invalidate", s.invalidateCache)

	api := e.Group("/api")
	api.GET("/customers", s.apiCustomers)
	api.POST("/customers/query", s.apiQueryCustomers)
	api.GET("/customers/:id", s.apiCustomer)
	api.GET("/orders", s.apiOrders)
	api.GET("/orders/:id", s.apiOrder)

	return s, nil
}

// Handler возвращает корневой http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start слушает addr до вызова Shutdown.
func (s *Server) Start(addr string) error { return s.echo.Start(addr) }

// Shutdown останавливает сервер, дожидаясь активных запросов.
func (s *Server) Shutdown(ctx context.Context) error { return s.echo.Shutdown(ctx) }

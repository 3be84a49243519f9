// Package catalog: слой данных консоли: запросы клиентов и заказов к Query API
// через мемоизирующий кэш.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
	"github.com/vladislavdragonenkov/ordersconsole/internal/search"
	"github.com/vladislavdragonenkov/ordersconsole/internal/service/querycache"
)

const postKeyMarker = ":post"

// Result: страница результатов с ключом запроса.
type Result[T any] struct {
	Page   domain.QueryResponse[T]
	Key    string
	Cached bool
}

// CustomerDetail: карточка клиента и его заказы.
type CustomerDetail struct {
	Customer    domain.Customer
	Orders      []domain.Order
	OrdersTotal int
}

// Options задаёт зависимости сервиса.
type Options struct {
	Logger       *log.Entry
	Audit        domain.AuditSink
	CacheOptions []querycache.Option
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

// WithCacheOptions передаёт параметры обоим кэшам.
func WithCacheOptions(cacheOpts ...querycache.Option) Option {
	return func(opts *Options) { opts.CacheOptions = append(opts.CacheOptions, cacheOpts...) }
}

// Service выполняет запросы с мемоизацией по ключу параметров.
type Service struct {
	api       domain.QueryAPI
	customers *querycache.Cache[domain.CustomerPage]
	orders    *querycache.Cache[domain.OrderPage]
	audit     domain.AuditSink
	logger    *log.Entry
}

// NewService создаёт сервис поверх клиента Query API.
func NewService(api domain.QueryAPI, options ...Option) *Service {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "catalog")
	}
	if opts.Audit == nil {
		opts.Audit = domain.NopAuditSink{}
	}

	cacheOpts := append([]querycache.Option{querycache.WithLogger(opts.Logger)}, opts.CacheOptions...)
	return &Service{
		api:       api,
		customers: querycache.New[domain.CustomerPage](string(domain.EntityCustomers), cacheOpts...),
		orders:    querycache.New[domain.OrderPage](string(domain.EntityOrders), cacheOpts...),
		audit:     opts.Audit,
		logger:    opts.Logger,
	}
}

// Key строит ключ кэша: <entity>?<канонические upstream-параметры>.
func Key(entity domain.Entity, params url.Values) string {
	return string(entity) + "?" + params.Encode()
}

// Customers возвращает страницу клиентов для состояния поиска.
func (s *Service) Customers(ctx context.Context, st search.State) (Result[domain.Customer], error) {
	return s.queryCustomers(ctx, st.Upstream())
}

// CustomersViaPost выполняет тот же запрос POST-вариантом Query API.
func (s *Service) CustomersViaPost(ctx context.Context, st search.State) (Result[domain.Customer], error) {
	params := st.Upstream()
	key := string(domain.EntityCustomers) + postKeyMarker + "?" + params.Encode()
	body := st.Body()
	page, cached, err := s.customers.Get(ctx, key, func(ctx context.Context) (domain.CustomerPage, error) {
		page, err := s.api.PostQueryCustomers(ctx, body)
		if err == nil {
			s.recordQuery(ctx, domain.EntityCustomers, key)
		}
		return page, err
	})
	if err != nil {
		return Result[domain.Customer]{Key: key}, err
	}
	return Result[domain.Customer]{Page: page, Key: key, Cached: cached}, nil
}

// Orders возвращает страницу заказов для состояния поиска.
func (s *Service) Orders(ctx context.Context, st search.State) (Result[domain.Order], error) {
	return s.queryOrders(ctx, st.Upstream())
}

// Customer загружает клиента и его заказы параллельно.
func (s *Service) Customer(ctx context.Context, id string) (CustomerDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return CustomerDetail{}, domain.ErrCustomerNotFound
	}

	var (
		customers Result[domain.Customer]
		orders    Result[domain.Order]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		customers, err = s.queryCustomers(gctx, url.Values{"id": {id}, "take": {"1"}})
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = s.queryOrders(gctx, url.Values{"customerId": {id}, "take": {"1"}, "include": {"total"}})
		return err
	})
	if err := g.Wait(); err != nil {
		return CustomerDetail{}, err
	}

	customer, ok := customers.Page.First()
	if !ok {
		return CustomerDetail{}, fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, id)
	}
	return CustomerDetail{
		Customer:    customer,
		Orders:      orders.Page.Results,
		OrdersTotal: max(orders.Page.Total, len(orders.Page.Results)),
	}, nil
}

// Order загружает заказ по числовому идентификатору.
func (s *Service) Order(ctx context.Context, id string) (domain.Order, error) {
	id = strings.TrimSpace(id)
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return domain.Order{}, fmt.Errorf("%w: %q", domain.ErrOrderNotFound, id)
	}

	res, err := s.queryOrders(ctx, url.Values{"id": {id}, "take": {"1"}})
	if err != nil {
		return domain.Order{}, err
	}
	order, ok := res.Page.First()
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return order, nil
}

// Invalidate сбрасывает закэшированные запросы сущности.
func (s *Service) Invalidate(entity domain.Entity) int {
	switch entity {
	case domain.EntityCustomers:
		return s.customers.Purge()
	case domain.EntityOrders:
		return s.orders.Purge()
	default:
		return 0
	}
}

// InvalidateKey сбрасывает один запрос по ключу.
func (s *Service) InvalidateKey(key string) bool {
	switch {
	case strings.HasPrefix(key, string(domain.EntityCustomers)):
		return s.customers.Invalidate(key)
	case strings.HasPrefix(key, string(domain.EntityOrders)):
		return s.orders.Invalidate(key)
	default:
		return false
	}
}

// Purge сбрасывает все кэши.
func (s *Service) Purge() int {
	return s.customers.Purge() + s.orders.Purge()
}

// Sweepers возвращает кэши для периодической очистки.
func (s *Service) Sweepers() []querycache.Sweeper {
	return []querycache.Sweeper{s.customers, s.orders}
}

func (s *Service) queryCustomers(ctx context.Context, params url.Values) (Result[domain.Customer], error) {
	key := Key(domain.EntityCustomers, params)
	page, cached, err := s.customers.Get(ctx, key, func(ctx context.Context) (domain.CustomerPage, error) {
		page, err := s.api.QueryCustomers(ctx, params)
		if err == nil {
			s.recordQuery(ctx, domain.EntityCustomers, key)
		}
		return page, err
	})
	if err != nil {
		return Result[domain.Customer]{Key: key}, err
	}
	return Result[domain.Customer]{Page: page, Key: key, Cached: cached}, nil
}

func (s *Service) queryOrders(ctx context.Context, params url.Values) (Result[domain.Order], error) {
	key := Key(domain.EntityOrders, params)
	page, cached, err := s.orders.Get(ctx, key, func(ctx context.Context) (domain.OrderPage, error) {
		page, err := s.api.QueryOrders(ctx, params)
		if err == nil {
			s.recordQuery(ctx, domain.EntityOrders, key)
		}
		return page, err
	})
	if err != nil {
		return Result[domain.Order]{Key: key}, err
	}
	return Result[domain.Order]{Page: page, Key: key, Cached: cached}, nil
}

func (s *Service) recordQuery(ctx context.Context, entity domain.Entity, key string) {
	s.logger.WithFields(log.Fields{"entity": entity, "key": key}).Debug("query executed")
	s.audit.Record(ctx, domain.AuditEvent{
		Type:       domain.AuditQueryExecuted,
		Entity:     entity,
		Subject:    key,
		OccurredAt: time.Now().UTC(),
	})
}

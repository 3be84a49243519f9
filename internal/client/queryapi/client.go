// Package queryapi реализует HTTP-клиент удалённого Query API клиентов и заказов.
package queryapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
)

// DefaultBaseURL: публичный экземпляр Query API.
const DefaultBaseURL = "https://uitestapi.occupass.com"

const (
	customersPath = "/query/customers"
	ordersPath    = "/query/orders"
)

// Исходы запроса для метрик.
const (
	OutcomeOK        = "ok"
	OutcomeStatus    = "status"
	OutcomeTransport = "transport"
	OutcomeDecode    = "decode"
	OutcomeAPIError  = "api_error"
)

// Observer принимает длительность запросов к upstream.
type Observer interface {
	ObserveUpstream(entity, outcome string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveUpstream(string, string, time.Duration) {}

// StatusError: ответ upstream с кодом вне 2xx.
type StatusError struct {
	Entity     domain.Entity
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("query %s: unexpected status %d", e.Entity, e.StatusCode)
	}
	return fmt.Sprintf("query %s: unexpected status %d: %s", e.Entity, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return domain.ErrUpstream }

// APIError: ошибка, которую upstream вернул в responseStatus при успешном коде.
type APIError struct {
	Entity domain.Entity
	Status domain.ResponseStatus
}

func (e *APIError) Error() string {
	return fmt.Sprintf("query %s: %s", e.Entity, e.Status.String())
}

func (e *APIError) Unwrap() error { return domain.ErrUpstream }

// Client выполняет запросы к Query API. Повторов нет: одна попытка на вызов.
type Client struct {
	http     *resty.Client
	logger   *log.Entry
	observer Observer
}

// Option настраивает клиента.
type Option func(*Client)

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver задаёт приёмник метрик.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// New создаёт клиента для baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetRetryCount(0),
		logger:   log.WithField("component", "queryapi"),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.SetHeader("Accept", "application/json")
	return c
}

var _ domain.QueryAPI = (*Client)(nil)

// QueryCustomers выполняет GET /query/customers.
func (c *Client) QueryCustomers(ctx context.Context, params url.Values) (domain.CustomerPage, error) {
	return query[domain.Customer](ctx, c, domain.EntityCustomers, customersPath, params)
}

// QueryOrders выполняет GET /query/orders.
func (c *Client) QueryOrders(ctx context.Context, params url.Values) (domain.OrderPage, error) {
	return query[domain.Order](ctx, c, domain.EntityOrders, ordersPath, params)
}

// PostQueryCustomers выполняет POST /query/customers с JSON-телом.
func (c *Client) PostQueryCustomers(ctx context.Context, body map[string]any) (domain.CustomerPage, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	return send[domain.Customer](c, domain.EntityCustomers, req, http.MethodPost, customersPath)
}

// Ping проверяет доступность upstream минимальным запросом.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.QueryCustomers(ctx, url.Values{"take": {"1"}, "fields": {"id"}})
	return err
}

func query[T any](ctx context.Context, c *Client, entity domain.Entity, path string, params url.Values) (domain.QueryResponse[T], error) {
	req := c.http.R().SetContext(ctx).SetQueryParamsFromValues(params)
	return send[T](c, entity, req, http.MethodGet, path)
}

func send[T any](c *Client, entity domain.Entity, req *resty.Request, method, path string) (domain.QueryResponse[T], error) {
	var page domain.QueryResponse[T]
	started := time.Now()
	outcome := OutcomeOK
	defer func() {
		c.observer.ObserveUpstream(string(entity), outcome, time.Since(started))
	}()

	resp, err := req.Execute(method, path)
	if err != nil {
		outcome = OutcomeTransport
		c.logger.WithError(err).WithField("entity", entity).Warn("query api request failed")
		return page, fmt.Errorf("%w: query %s: %w", domain.ErrUpstream, entity, err)
	}

	if !resp.IsSuccess() {
		outcome = OutcomeStatus
		statusErr := &StatusError{Entity: entity, StatusCode: resp.StatusCode(), Body: snippet(resp.Body())}
		if status, ok := decodeStatus(resp.Body()); ok {
			statusErr.Body = status.String()
		}
		c.logger.WithFields(log.Fields{
			"entity": entity,
			"status": resp.StatusCode(),
		}).Warn("query api returned error status")
		return page, statusErr
	}

	if err := json.Unmarshal(resp.Body(), &page); err != nil {
		outcome = OutcomeDecode
		return domain.QueryResponse[T]{}, fmt.Errorf("%w: decode %s response: %w", domain.ErrUpstream, entity, err)
	}
	if page.ResponseStatus.Failed() {
		outcome = OutcomeAPIError
		return domain.QueryResponse[T]{}, &APIError{Entity: entity, Status: *page.ResponseStatus}
	}

	c.logger.WithFields(log.Fields{
		"entity":  entity,
		"total":   page.Total,
		"results": len(page.Results),
		"elapsed": time.Since(started).String(),
	}).Debug("query api request completed")
	return page, nil
}

func decodeStatus(body []byte) (domain.ResponseStatus, bool) {
	var envelope struct {
		ResponseStatus *domain.ResponseStatus `json:"responseStatus"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || !envelope.ResponseStatus.Failed() {
		return domain.ResponseStatus{}, false
	}
	return *envelope.ResponseStatus, true
}

func snippet(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// IsStatus сообщает, вернул ли upstream указанный HTTP-код.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

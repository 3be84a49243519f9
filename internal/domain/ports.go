package domain

import (
	"context"
	"net/url"
	"time"
)

// QueryAPI описывает удалённый REST Query API клиентов и заказов.
type QueryAPI interface {
	// QueryCustomers выполняет GET /query/customers с готовыми upstream-параметрами.
	QueryCustomers(ctx context.Context, params url.Values) (CustomerPage, error)
	// PostQueryCustomers выполняет POST /query/customers с JSON-телом.
	PostQueryCustomers(ctx context.Context, body map[string]any) (CustomerPage, error)
	// QueryOrders выполняет GET /query/orders.
	QueryOrders(ctx context.Context, params url.Values) (OrderPage, error)
}

// SavedViewRepository хранит сохранённые представления.
type SavedViewRepository interface {
	Create(ctx context.Context, view SavedView) (SavedView, error)
	Get(ctx context.Context, id string) (SavedView, error)
	// List возвращает представления сущности (все, если entity пустая) от новых к старым.
	List(ctx context.Context, entity Entity) ([]SavedView, error)
	Delete(ctx context.Context, id string) error
}

// AuditEvent: запись аудита действий консоли.
type AuditEvent struct {
	Type       string
	Entity     Entity
	Subject    string
	Attributes map[string]string
	OccurredAt time.Time
}

// AuditSink принимает события аудита. Ошибки доставки не влияют на запрос пользователя.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent)
}

// NopAuditSink отбрасывает события.
type NopAuditSink struct{}

func (NopAuditSink) Record(context.Context, AuditEvent) {}

const (
	AuditViewSaved     = "console.view.saved"
	AuditViewDeleted   = "console.view.deleted"
	AuditQueryExecuted = "console.query.executed"
)

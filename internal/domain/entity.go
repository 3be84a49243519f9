package domain

import (
	"fmt"
	"strings"
)

// Entity: тип записей, которые консоль умеет запрашивать.
type Entity string

const (
	EntityCustomers Entity = "customers"
	EntityOrders    Entity = "orders"
)

// Entities перечисляет все поддерживаемые сущности.
func Entities() []Entity {
	return []Entity{EntityCustomers, EntityOrders}
}

// ParseEntity разбирает имя сущности без учёта регистра.
func ParseEntity(raw string) (Entity, error) {
	switch Entity(strings.ToLower(strings.TrimSpace(raw))) {
	case EntityCustomers:
		return EntityCustomers, nil
	case EntityOrders:
		return EntityOrders, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEntity, raw)
	}
}

func (e Entity) String() string { return string(e) }

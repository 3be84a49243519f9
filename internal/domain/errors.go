package domain

import "errors"

var (
	// ErrCustomerNotFound возвращается, если клиент с указанным id отсутствует в upstream.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrOrderNotFound возвращается, если заказ с указанным id отсутствует в upstream.
	ErrOrderNotFound = errors.New("order not found")
	// ErrUpstream: любая ошибка удалённого Query API (транспорт, статус, responseStatus).
	ErrUpstream = errors.New("query api request failed")
	// ErrUnknownEntity: сущность не поддерживается консолью.
	ErrUnknownEntity = errors.New("unknown entity")

	// Ошибка пустого имени сохранённого представления.
	ErrViewNameRequired = errors.New("view name is required")
	// Ошибка слишком длинного имени сохранённого представления.
	ErrViewNameTooLong = errors.New("view name is too long")
	// ErrViewNotFound возвращается, если представление отсутствует в хранилище.
	ErrViewNotFound = errors.New("saved view not found")
	// ErrViewExists возвращается при повторном сохранении представления с тем же id.
	ErrViewExists = errors.New("saved view already exists")
)

// IsNotFound проверяет, является ли ошибка отсутствием сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrViewNotFound)
}

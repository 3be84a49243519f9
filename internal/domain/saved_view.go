package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxViewNameLength ограничивает длину имени представления в символах.
const MaxViewNameLength = 120

// SavedView: именованная канонизированная строка поиска для одной сущности.
type SavedView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Entity    Entity    `json:"entity"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"createdAt"`
}

// NormalizeViewName обрезает пробелы и проверяет ограничения имени.
func NormalizeViewName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrViewNameRequired
	}
	if utf8.RuneCountInString(name) > MaxViewNameLength {
		return "", ErrViewNameTooLong
	}
	return name, nil
}

// Path возвращает адрес страницы списка, который открывает представление.
func (v SavedView) Path() string {
	if v.Query == "" {
		return "/" + string(v.Entity)
	}
	return "/" + string(v.Entity) + "?" + v.Query
}

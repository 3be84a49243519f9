// Package view содержит модели представления списковых и детальных страниц:
// мультиселект, пагинацию, колонки таблиц и разбор формы фильтров.
package view

import (
	"slices"
	"strings"

	"github.com/vladislavdragonenkov/ordersconsole/internal/search"
)

// ActionKind: тип действия пользователя над мультиселектом.
type ActionKind uint8

const (
	ActionAdd ActionKind = iota + 1
	ActionPick
	ActionRemove
	ActionClear
)

// Action: действие над мультиселектом.
type Action struct {
	Kind   ActionKind
	Token  string
	Option search.Option
}

// Add: ввод произвольного значения (enter, blur или отправка формы).
func Add(token string) Action { return Action{Kind: ActionAdd, Token: token} }

// Pick: выбор существующей опции.
func Pick(opt search.Option) Action { return Action{Kind: ActionPick, Option: opt} }

// Remove: удаление выбранного значения.
func Remove(value string) Action { return Action{Kind: ActionRemove, Token: value} }

// Clear: очистка выбора.
func Clear() Action { return Action{Kind: ActionClear} }

// MultiSelect: состояние мультиселекта. Значение неизменяемо: Apply возвращает копию.
type MultiSelect struct {
	options   []search.Option
	selected  []search.Option
	creatable bool
	onChange  func([]string)
}

// NewMultiSelect создаёт мультиселект с текущими значениями. Значения, совпадающие
// с опциями, получают подписи опций.
func NewMultiSelect(options []search.Option, creatable bool, values []string) MultiSelect {
	ms := MultiSelect{options: options, creatable: creatable}
	for _, v := range values {
		ms = ms.insert(ms.resolve(v))
	}
	return ms
}

// ForField создаёт мультиселект для спискового поля состояния поиска.
func ForField(f search.Field, values []string) MultiSelect {
	return NewMultiSelect(f.Options, f.Input == search.InputCreatable, values)
}

// OnChange регистрирует обработчик изменения. Вызывается только из Dispatch.
func (m MultiSelect) OnChange(fn func([]string)) MultiSelect {
	m.onChange = fn
	return m
}

// Values возвращает выбранные значения в порядке выбора.
func (m MultiSelect) Values() []string {
	out := make([]string, 0, len(m.selected))
	for _, opt := range m.selected {
		out = append(out, opt.Value)
	}
	return out
}

// Selected возвращает выбранные опции с подписями.
func (m MultiSelect) Selected() []search.Option { return slices.Clone(m.selected) }

// Available возвращает опции, которые ещё не выбраны.
func (m MultiSelect) Available() []search.Option {
	out := make([]search.Option, 0, len(m.options))
	for _, opt := range m.options {
		if !m.has(opt.Label) {
			out = append(out, opt)
		}
	}
	return out
}

// Creatable сообщает, разрешён ли ввод новых значений.
func (m MultiSelect) Creatable() bool { return m.creatable }

// Apply применяет действие и возвращает новое состояние.
func (m MultiSelect) Apply(a Action) MultiSelect {
	switch a.Kind {
	case ActionAdd:
		token := strings.TrimSpace(a.Token)
		if token == "" {
			return m
		}
		opt, known := m.lookup(token)
		if !known && !m.creatable {
			return m
		}
		return m.insert(opt)
	case ActionPick:
		if a.Option.Value == "" {
			return m
		}
		if a.Option.Label == "" {
			a.Option.Label = a.Option.Value
		}
		return m.insert(a.Option)
	case ActionRemove:
		out := m
		out.selected = slices.DeleteFunc(slices.Clone(m.selected), func(opt search.Option) bool {
			return opt.Value == a.Token || opt.Label == a.Token
		})
		return out
	case ActionClear:
		out := m
		out.selected = nil
		return out
	}
	return m
}

// Dispatch применяет действие пользователя и уведомляет обработчик, если выбор изменился.
func (m MultiSelect) Dispatch(a Action) MultiSelect {
	next := m.Apply(a)
	if m.onChange != nil && !slices.Equal(m.Values(), next.Values()) {
		m.onChange(next.Values())
	}
	return next
}

func (m MultiSelect) insert(opt search.Option) MultiSelect {
	if m.has(opt.Label) {
		return m
	}
	out := m
	out.selected = append(slices.Clone(m.selected), opt)
	return out
}

func (m MultiSelect) has(label string) bool {
	return slices.ContainsFunc(m.selected, func(opt search.Option) bool { return opt.Label == label })
}

func (m MultiSelect) lookup(token string) (search.Option, bool) {
	for _, opt := range m.options {
		if opt.Value == token || opt.Label == token {
			return opt, true
		}
	}
	return search.Option{Value: token, Label: token}, false
}

func (m MultiSelect) resolve(v string) search.Option {
	opt, _ := m.lookup(v)
	return opt
}

package search

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

type value struct {
	text string
	list []string
	n    int
}

// State: неизменяемое состояние поиска. Методы With* возвращают копию.
// Нулевое значение не пригодно к использованию; состояние создаётся через Schema.
type State struct {
	schema *Schema
	values []value
}

// Schema возвращает схему состояния.
func (st State) Schema() *Schema { return st.schema }

// String возвращает значение строкового поля.
func (st State) String(name string) string {
	return st.values[st.mustIndex(name, KindString)].text
}

// Strings возвращает копию списка.
func (st State) Strings(name string) []string {
	return slices.Clone(st.values[st.mustIndex(name, KindStrings)].list)
}

// Int возвращает значение целочисленного поля.
func (st State) Int(name string) int {
	return st.values[st.mustIndex(name, KindInt)].n
}

// Skip и Take: сокращения для полей пагинации.
func (st State) Skip() int { return st.Int("skip") }

func (st State) Take() int { return st.Int("take") }

// With устанавливает строковое поле.
func (st State) With(name, v string) State {
	i := st.mustIndex(name, KindString)
	out := st.clone()
	out.values[i].text = v
	return out
}

// WithStrings устанавливает список; пустые элементы отбрасываются.
func (st State) WithStrings(name string, vs []string) State {
	i := st.mustIndex(name, KindStrings)
	out := st.clone()
	out.values[i].list = compact(vs)
	return out
}

// WithInt устанавливает целое поле; значение ниже минимума заменяется значением по умолчанию.
func (st State) WithInt(name string, n int) State {
	i := st.mustIndex(name, KindInt)
	f := st.schema.fields[i]
	out := st.clone()
	if n < f.Min {
		n = f.DefaultInt
	}
	out.values[i].n = n
	return out
}

// Set разбирает текстовое значение по типу поля. Списки принимаются через запятую.
func (st State) Set(name, raw string) (State, error) {
	f, ok := st.schema.Field(name)
	if !ok {
		return st, fmt.Errorf("unknown field %q for %s", name, st.schema.name)
	}
	switch f.Kind {
	case KindString:
		return st.With(name, strings.TrimSpace(raw)), nil
	case KindStrings:
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return st.WithStrings(name, parts), nil
	default:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return st, fmt.Errorf("field %q expects an integer: %w", name, err)
		}
		if n < f.Min {
			return st, fmt.Errorf("field %q must be >= %d", name, f.Min)
		}
		return st.WithInt(name, n), nil
	}
}

// Unset возвращает поле к значению по умолчанию.
func (st State) Unset(name string) State {
	i, ok := st.schema.index[name]
	if !ok {
		return st
	}
	out := st.clone()
	out.values[i] = st.schema.fields[i].defaultValue()
	return out
}

// Reset возвращает состояние по умолчанию, включая пагинацию.
func (st State) Reset() State { return st.schema.Defaults() }

// IsDefault сообщает, равно ли поле значению по умолчанию.
func (st State) IsDefault(name string) bool {
	i, ok := st.schema.index[name]
	if !ok {
		return true
	}
	return st.schema.fields[i].isDefault(st.values[i])
}

// HasFilters сообщает, задан ли хотя бы один фильтр (есть что сбрасывать).
func (st State) HasFilters() bool {
	for i, f := range st.schema.fields {
		if f.IsFilter() && !f.isDefault(st.values[i]) {
			return true
		}
	}
	return false
}

// Equal сравнивает два состояния одной схемы.
func (st State) Equal(other State) bool {
	if st.schema != other.schema {
		return false
	}
	for i := range st.values {
		a, b := st.values[i], other.values[i]
		if a.text != b.text || a.n != b.n || !slices.Equal(a.list, b.list) {
			return false
		}
	}
	return true
}

// Encode возвращает параметры URL без полей, равных значениям по умолчанию.
func (st State) Encode() url.Values {
	out := url.Values{}
	for i, f := range st.schema.fields {
		v := st.values[i]
		if f.isDefault(v) {
			continue
		}
		switch f.Kind {
		case KindString:
			out.Set(f.Name, v.text)
		case KindStrings:
			out[f.Name] = slices.Clone(v.list)
		case KindInt:
			out.Set(f.Name, strconv.Itoa(v.n))
		}
	}
	return out
}

// Query возвращает каноническую строку запроса: поля в порядке схемы,
// элементы списков в исходном порядке. Пустая строка: состояние по умолчанию.
func (st State) Query() string {
	var b strings.Builder
	add := func(name, v string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	for i, f := range st.schema.fields {
		v := st.values[i]
		if f.isDefault(v) {
			continue
		}
		switch f.Kind {
		case KindString:
			add(f.Name, v.text)
		case KindStrings:
			for _, item := range v.list {
				add(f.Name, item)
			}
		case KindInt:
			add(f.Name, strconv.Itoa(v.n))
		}
	}
	return b.String()
}

// Upstream отображает состояние в параметры Query API: только непустые поля,
// include=total, списки Select через разделитель, Creatable повторяющимися параметрами.
func (st State) Upstream() url.Values {
	out := url.Values{}
	out.Set("include", "total")
	for i, f := range st.schema.fields {
		v := st.values[i]
		switch f.Kind {
		case KindString:
			if v.text != "" {
				out.Set(f.Name, v.text)
			}
		case KindStrings:
			if len(v.list) == 0 {
				continue
			}
			if f.Separator != "" {
				out.Set(f.Name, strings.Join(v.list, f.Separator))
			} else {
				out[f.Name] = slices.Clone(v.list)
			}
		case KindInt:
			out.Set(f.Name, strconv.Itoa(v.n))
		}
	}
	return out
}

// Body: то же, что Upstream, в виде JSON-тела для POST-варианта Query API.
func (st State) Body() map[string]any {
	body := map[string]any{"include": "total"}
	for i, f := range st.schema.fields {
		v := st.values[i]
		switch f.Kind {
		case KindString:
			if v.text != "" {
				body[f.Name] = v.text
			}
		case KindStrings:
			if len(v.list) == 0 {
				continue
			}
			if f.Separator != "" {
				body[f.Name] = strings.Join(v.list, f.Separator)
			} else {
				body[f.Name] = slices.Clone(v.list)
			}
		case KindInt:
			body[f.Name] = v.n
		}
	}
	return body
}

// Map возвращает все поля с их текущими значениями (для JSON-ответов).
func (st State) Map() map[string]any {
	out := make(map[string]any, len(st.values))
	for i, f := range st.schema.fields {
		v := st.values[i]
		switch f.Kind {
		case KindString:
			out[f.Name] = v.text
		case KindStrings:
			list := slices.Clone(v.list)
			if list == nil {
				list = []string{}
			}
			out[f.Name] = list
		case KindInt:
			out[f.Name] = v.n
		}
	}
	return out
}

func (st State) clone() State {
	out := State{schema: st.schema, values: make([]value, len(st.values))}
	copy(out.values, st.values)
	return out
}

func (st State) mustIndex(name string, kind Kind) int {
	i, ok := st.schema.index[name]
	if !ok {
		panic(fmt.Sprintf("search: unknown field %q in schema %q", name, st.schema.name))
	}
	if f := st.schema.fields[i]; f.Kind != kind {
		panic(fmt.Sprintf("search: field %q is %s, not %s", name, f.Kind, kind))
	}
	return i
}

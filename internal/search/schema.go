package search

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Schema: упорядоченный набор полей одной списковой страницы.
type Schema struct {
	name   string
	fields []Field
	index  map[string]int
}

// NewSchema собирает схему. Повторяющиеся имена полей: ошибка программиста.
func NewSchema(name string, fields ...Field) *Schema {
	s := &Schema{name: name, fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("search: duplicate field %q in schema %q", f.Name, name))
		}
		s.index[f.Name] = i
	}
	return s
}

// Name возвращает имя схемы (совпадает с сущностью).
func (s *Schema) Name() string { return s.name }

// Fields возвращает копию объявлений полей в порядке схемы.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field ищет поле по имени.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Defaults возвращает состояние, где каждое поле равно своему значению по умолчанию.
func (s *Schema) Defaults() State {
	st := State{schema: s, values: make([]value, len(s.fields))}
	for i, f := range s.fields {
		st.values[i] = f.defaultValue()
	}
	return st
}

// Decode строит состояние из параметров URL. Отсутствующие и некорректные значения
// заменяются значениями по умолчанию, неизвестные ключи игнорируются.
func (s *Schema) Decode(values url.Values) State {
	st := s.Defaults()
	for i, f := range s.fields {
		raw, ok := values[f.Name]
		if !ok || len(raw) == 0 {
			continue
		}
		switch f.Kind {
		case KindString:
			st.values[i].text = raw[0]
		case KindStrings:
			st.values[i].list = compact(raw)
		case KindInt:
			st.values[i].n = f.parseInt(raw[0])
		}
	}
	return st
}

// Parse декодирует сырую строку запроса. Нераспознанные пары пропускаются.
func (s *Schema) Parse(rawQuery string) State {
	values, _ := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	return s.Decode(values)
}

func (f Field) defaultValue() value {
	if f.Kind == KindInt {
		return value{n: f.DefaultInt}
	}
	return value{}
}

func (f Field) parseInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < f.Min {
		return f.DefaultInt
	}
	return n
}

func (f Field) isDefault(v value) bool {
	switch f.Kind {
	case KindString:
		return v.text == ""
	case KindStrings:
		return len(v.list) == 0
	case KindInt:
		return v.n == f.DefaultInt
	}
	return true
}

// compact копирует список без пустых элементов.
func compact(list []string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Package search описывает состояние поиска списковых страниц: набор типизированных
// полей со значениями по умолчанию, их кодирование в URL и отображение в параметры
// upstream Query API.
package search

// Kind: тип значения поля.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindStrings
	KindInt
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindStrings:
		return "strings"
	case KindInt:
		return "int"
	default:
		return "unknown"
	}
}

// Input: элемент формы фильтров, которым редактируется поле.
type Input uint8

const (
	// InputText: текстовое поле.
	InputText Input = iota + 1
	// InputCreatable: мультиселект со свободным вводом новых значений.
	InputCreatable
	// InputSelect: мультиселект из фиксированного списка опций.
	InputSelect
	// InputPaging: поле пагинации, в форме фильтров не показывается.
	InputPaging
)

// Option: значение мультиселекта с подписью.
type Option struct {
	Value string
	Label string
}

// Field: объявление поля состояния поиска.
type Field struct {
	Name  string
	Label string
	Kind  Kind
	Input Input
	// Options: допустимые значения для InputSelect.
	Options []Option
	// Separator склеивает список в один upstream-параметр. Пустой: параметр повторяется.
	Separator string
	// DefaultInt и Min действуют только для KindInt.
	DefaultInt int
	Min        int
}

// Text объявляет строковый фильтр.
func Text(name, label string) Field {
	return Field{Name: name, Label: label, Kind: KindString, Input: InputText}
}

// Creatable объявляет список с произвольными значениями (повторяющийся параметр upstream).
func Creatable(name, label string) Field {
	return Field{Name: name, Label: label, Kind: KindStrings, Input: InputCreatable}
}

// Select объявляет список из фиксированных опций; upstream получает значения через запятую.
func Select(name, label string, options []Option) Field {
	return Field{Name: name, Label: label, Kind: KindStrings, Input: InputSelect, Options: options, Separator: ","}
}

// Paging объявляет целочисленное поле пагинации.
func Paging(name string, def, minimum int) Field {
	return Field{Name: name, Label: name, Kind: KindInt, Input: InputPaging, DefaultInt: def, Min: minimum}
}

// IsFilter сообщает, относится ли поле к фильтрам (всё, кроме пагинации).
func (f Field) IsFilter() bool { return f.Input != InputPaging }

// Option ищет опцию по значению или подписи.
func (f Field) Option(token string) (Option, bool) {
	for _, opt := range f.Options {
		if opt.Value == token || opt.Label == token {
			return opt, true
		}
	}
	return Option{}, false
}

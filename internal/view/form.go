package view

import (
	"net/url"

	"github.com/vladislavdragonenkov/ordersconsole/internal/search"
)

// Служебные параметры формы фильтров.
const (
	ResetParam   = "reset"
	AddSuffix    = "_add"
	RemoveSuffix = "_remove"
)

// ReduceForm переводит отправку формы в действия мультиселектов и возвращает итоговое
// состояние. reset сбрасывает всё к значениям по умолчанию.
func ReduceForm(st search.State, form url.Values) search.State {
	if _, ok := form[ResetParam]; ok {
		return st.Reset()
	}
	for _, f := range st.Schema().Fields() {
		if f.Kind != search.KindStrings {
			continue
		}
		adds, removes := form[f.Name+AddSuffix], form[f.Name+RemoveSuffix]
		if len(adds) == 0 && len(removes) == 0 {
			continue
		}
		ms := ForField(f, st.Strings(f.Name))
		for _, token := range adds {
			ms = ms.Apply(Add(token))
		}
		for _, v := range removes {
			ms = ms.Apply(Remove(v))
		}
		st = st.WithStrings(f.Name, ms.Values())
	}
	return st
}

// FormField: поле формы фильтров, готовое к выводу.
type FormField struct {
	Name      string
	Label     string
	Value     string
	Multi     bool
	Creatable bool
	Selected  []search.Option
	Available []search.Option
}

// AddName и RemoveName: имена управляющих параметров мультиселекта.
func (f FormField) AddName() string { return f.Name + AddSuffix }

func (f FormField) RemoveName() string { return f.Name + RemoveSuffix }

// Form строит поля формы фильтров из состояния (без пагинации).
func Form(st search.State) []FormField {
	fields := st.Schema().Fields()
	out := make([]FormField, 0, len(fields))
	for _, f := range fields {
		if !f.IsFilter() {
			continue
		}
		ff := FormField{Name: f.Name, Label: f.Label}
		switch f.Kind {
		case search.KindString:
			ff.Value = st.String(f.Name)
		case search.KindStrings:
			ms := ForField(f, st.Strings(f.Name))
			ff.Multi = true
			ff.Creatable = ms.Creatable()
			ff.Selected = ms.Selected()
			ff.Available = ms.Available()
		}
		out = append(out, ff)
	}
	return out
}

package view

import "github.com/vladislavdragonenkov/ordersconsole/internal/search"

// Pagination: модель навигации по страницам.
type Pagination struct {
	Skip  int
	Take  int
	Total int
}

// NewPagination нормализует значения: skip не отрицателен, take положителен.
func NewPagination(skip, take, total int) Pagination {
	if skip < 0 {
		skip = 0
	}
	if take <= 0 {
		take = search.DefaultTake
	}
	return Pagination{Skip: skip, Take: take, Total: total}
}

// HasPrevious: кнопка «назад» недоступна на первой странице.
func (p Pagination) HasPrevious() bool { return p.Skip > 0 }

// HasNext: кнопка «вперёд» недоступна, когда skip+take достигает total.
func (p Pagination) HasNext() bool { return p.Skip+p.Take < p.Total }

// PreviousSkip возвращает смещение предыдущей страницы, не меньше нуля.
func (p Pagination) PreviousSkip() int { return max(0, p.Skip-p.Take) }

// NextSkip возвращает смещение следующей страницы.
func (p Pagination) NextSkip() int { return p.Skip + p.Take }

// From и To: номера первой и последней записи на странице (с единицы).
func (p Pagination) From() int {
	if p.Total == 0 || p.Skip >= p.Total {
		return 0
	}
	return p.Skip + 1
}

func (p Pagination) To() int { return min(p.Skip+p.Take, p.Total) }

// Page возвращает номер текущей страницы (с единицы).
func (p Pagination) Page() int { return p.Skip/p.Take + 1 }

// Pages возвращает число страниц.
func (p Pagination) Pages() int {
	if p.Total == 0 {
		return 1
	}
	return (p.Total + p.Take - 1) / p.Take
}

// PageSize: вариант размера страницы в селекторе.
type PageSize struct {
	Size     int
	Selected bool
}

// PageSizes возвращает доступные размеры страницы с отметкой текущего.
func (p Pagination) PageSizes() []PageSize {
	out := make([]PageSize, 0, len(search.PageSizes)+1)
	seen := false
	for _, n := range search.PageSizes {
		out = append(out, PageSize{Size: n, Selected: n == p.Take})
		seen = seen || n == p.Take
	}
	if !seen {
		out = append(out, PageSize{Size: p.Take, Selected: true})
	}
	return out
}

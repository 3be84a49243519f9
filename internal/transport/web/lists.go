package web

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
	"github.com/vladislavdragonenkov/ordersconsole/internal/search"
	"github.com/vladislavdragonenkov/ordersconsole/internal/view"
)

type pageSizeLink struct {
	Size     int
	Selected bool
	URL      string
}

type listPage struct {
	Title      string
	Entity     domain.Entity
	Path       string
	Self       string
	Query      string
	Form       []view.FormField
	CanReset   bool
	Table      view.Table
	Pagination view.Pagination
	PrevURL    string
	NextURL    string
	PageSizes  []pageSizeLink
	Cached     bool
	Error      string
	Views      []domain.SavedView

	state search.State
}

// canonicalState применяет действия формы к состоянию из URL. Второй результат: адрес
// для редиректа, если строка запроса не каноническая.
func canonicalState(c echo.Context, schema *search.Schema) (search.State, string) {
	params := c.QueryParams()
	st := view.ReduceForm(schema.Decode(params), params)
	if query := st.Query(); query != c.Request().URL.RawQuery {
		return st, withQuery(c.Request().URL.Path, query)
	}
	return st, ""
}

func withQuery(path, query string) string {
	if query == "" {
		return path
	}
	return path + "?" + query
}

func (s *Server) listCustomers(c echo.Context) error {
	st, redirect := canonicalState(c, search.Customers)
	if redirect != "" {
		return c.Redirect(http.StatusSeeOther, redirect)
	}

	page := s.newListPage(c, domain.EntityCustomers, "Customers", st)
	res, err := s.catalog.Customers(c.Request().Context(), st)
	status := page.fill(err, res.Page.Total, res.Cached)
	if err == nil {
		cols := view.Project(view.CustomerColumns, st.Strings("fields"))
		page.Table = view.BuildTable(cols, res.Page.Results)
	}
	return c.Render(status, "list", page)
}

func (s *Server) listOrders(c echo.Context) error {
	st, redirect := canonicalState(c, search.Orders)
	if redirect != "" {
		return c.Redirect(http.StatusSeeOther, redirect)
	}

	page := s.newListPage(c, domain.EntityOrders, "Orders", st)
	res, err := s.catalog.Orders(c.Request().Context(), st)
	status := page.fill(err, res.Page.Total, res.Cached)
	if err == nil {
		page.Table = view.BuildTable(view.OrderColumns, res.Page.Results)
	}
	return c.Render(status, "list", page)
}

func (s *Server) newListPage(c echo.Context, entity domain.Entity, title string, st search.State) *listPage {
	path := "/" + string(entity)
	page := &listPage{
		Title:    title,
		Entity:   entity,
		Path:     path,
		Self:     withQuery(path, st.Query()),
		Query:    st.Query(),
		Form:     view.Form(st),
		CanReset: st.HasFilters(),
		state:    st,
	}
	views, err := s.views.List(c.Request().Context(), entity)
	if err != nil {
		s.logger.WithError(err).Warn("failed to list saved views")
	}
	page.Views = views
	page.setPagination(0)
	return page
}

// fill выставляет результат загрузки и возвращает HTTP-статус страницы.
func (p *listPage) fill(err error, total int, cached bool) int {
	if err != nil {
		p.Error = err.Error()
		return statusFor(err)
	}
	p.Cached = cached
	p.setPagination(total)
	return http.StatusOK
}

func (p *listPage) setPagination(total int) {
	st := p.state
	p.Pagination = view.NewPagination(st.Skip(), st.Take(), total)
	p.PrevURL = withQuery(p.Path, st.WithInt("skip", p.Pagination.PreviousSkip()).Query())
	p.NextURL = withQuery(p.Path, st.WithInt("skip", p.Pagination.NextSkip()).Query())

	sizes := p.Pagination.PageSizes()
	p.PageSizes = make([]pageSizeLink, 0, len(sizes))
	for _, size := range sizes {
		target := st.WithInt("take", size.Size).WithInt("skip", 0)
		p.PageSizes = append(p.PageSizes, pageSizeLink{
			Size:     size.Size,
			Selected: size.Selected,
			URL:      withQuery(p.Path, target.Query()),
		})
	}
}

// returnTarget допускает возврат только на локальные страницы списков.
func returnTarget(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return ""
	}
	switch u.Path {
	case "/customers", "/orders":
		return u.RequestURI()
	default:
		return ""
	}
}

package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
)

type viewsPage struct {
	Title string
	Views []domain.SavedView
	Error string
}

func (s *Server) listViews(c echo.Context) error {
	var entity domain.Entity
	if raw := c.QueryParam("entity"); raw != "" {
		parsed, err := domain.ParseEntity(raw)
		if err != nil {
			return err
		}
		entity = parsed
	}
	views, err := s.views.List(c.Request().Context(), entity)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "views", viewsPage{Title: "Saved views", Views: views})
}

func (s *Server) saveView(c echo.Context) error {
	entity, err := domain.ParseEntity(c.FormValue("entity"))
	if err != nil {
		return err
	}
	saved, err := s.views.Save(c.Request().Context(), c.FormValue("name"), entity, c.FormValue("query"))
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, saved.Path())
}

// openView перенаправляет на страницу списка с сохранённым запросом.
func (s *Server) openView(c echo.Context) error {
	saved, err := s.views.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, saved.Path())
}

func (s *Server) deleteView(c echo.Context) error {
	if err := s.views.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/views")
}

// invalidateCache сбрасывает кэш сущности (или весь) и возвращает на список.
func (s *Server) invalidateCache(c echo.Context) error {
	raw := c.FormValue("entity")
	var (
		evicted int
		back    = "/customers"
	)
	if raw == "" {
		evicted = s.catalog.Purge()
	} else {
		entity, err := domain.ParseEntity(raw)
		if err != nil {
			return err
		}
		evicted = s.catalog.Invalidate(entity)
		back = "/" + string(entity)
	}
	s.observer.Invalidated("http")
	s.logger.WithField("entity", raw).WithField("evicted", evicted).Info("cache invalidated by operator")

	if target := returnTarget(c.FormValue("return")); target != "" {
		back = target
	}
	return c.Redirect(http.StatusSeeOther, back)
}

package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
)

type errorPage struct {
	Title   string
	Message string
	Back    string
}

// statusFor сопоставляет доменные ошибки HTTP-статусам.
func statusFor(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownEntity),
		errors.Is(err, domain.ErrViewNameRequired),
		errors.Is(err, domain.ErrViewNameTooLong):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error, status int) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok {
			return msg
		}
	}
	if status >= http.StatusInternalServerError && !errors.Is(err, domain.ErrUpstream) {
		return http.StatusText(status)
	}
	return err.Error()
}

// handleError: единая точка вывода ошибок: JSON для /api, HTML-страница для остального.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := statusFor(err)
	message := messageFor(err, status)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", c.Request().URL.Path).Error("request error")
	}

	var writeErr error
	switch {
	case c.Request().Method == http.MethodHead:
		writeErr = c.NoContent(status)
	case strings.HasPrefix(c.Request().URL.Path, "/api/"):
		writeErr = c.JSON(status, map[string]string{"error": message})
	default:
		writeErr = c.Render(status, "error", errorPage{
			Title:   titleFor(err, status),
			Message: message,
			Back:    backFor(c.Request().URL.Path),
		})
	}
	if writeErr != nil {
		s.logger.WithError(writeErr).Warn("failed to write error response")
	}
}

func titleFor(err error, status int) string {
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound):
		return "Customer not found"
	case errors.Is(err, domain.ErrOrderNotFound):
		return "Order not found"
	case errors.Is(err, domain.ErrViewNotFound):
		return "Saved view not found"
	case status == http.StatusNotFound:
		return "Not found"
	default:
		return http.StatusText(status)
	}
}

func backFor(path string) string {
	switch {
	case strings.HasPrefix(path, "/customers"):
		return "/customers"
	case strings.HasPrefix(path, "/orders"):
		return "/orders"
	case strings.HasPrefix(path, "/views"):
		return "/views"
	default:
		return ""
	}
}

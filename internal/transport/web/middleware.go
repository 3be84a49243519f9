package web

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// requestID проставляет X-Request-ID, если клиент его не передал.
func requestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

// accessLog пишет строку лога и метрику на каждый запрос.
func (s *Server) accessLog() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Обработчик ошибок пишет ответ и статус до логирования.
				c.Error(err)
			}

			req, res := c.Request(), c.Response()
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			elapsed := time.Since(start)
			s.observer.ObserveHTTP(route, req.Method, res.Status, elapsed)

			entry := s.logger.WithFields(log.Fields{
				"method":     req.Method,
				"path":       req.URL.Path,
				"route":      route,
				"status":     res.Status,
				"duration":   elapsed.String(),
				"request_id": res.Header().Get(echo.HeaderXRequestID),
			})
			switch {
			case res.Status >= 500:
				entry.Warn("request failed")
			default:
				entry.Debug("request served")
			}
			return nil
		}
	}
}

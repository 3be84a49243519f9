package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vladislavdragonenkov/ordersconsole/internal/search"
	"github.com/vladislavdragonenkov/ordersconsole/internal/service/catalog"
)

type pageResponse[T any] struct {
	State   map[string]any `json:"state"`
	Query   string         `json:"query"`
	Key     string         `json:"key"`
	Cached  bool           `json:"cached"`
	Offset  int            `json:"offset"`
	Total   int            `json:"total"`
	Results []T            `json:"results"`
}

func newPageResponse[T any](st search.State, res catalog.Result[T]) pageResponse[T] {
	results := res.Page.Results
	if results == nil {
		results = []T{}
	}
	return pageResponse[T]{
		State:   st.Map(),
		Query:   st.Query(),
		Key:     res.Key,
		Cached:  res.Cached,
		Offset:  res.Page.Offset,
		Total:   res.Page.Total,
		Results: results,
	}
}

func (s *Server) apiCustomers(c echo.Context) error {
	st := search.Customers.Decode(c.QueryParams())
	res, err := s.catalog.Customers(c.Request().Context(), st)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPageResponse(st, res))
}

func (s *Server) apiOrders(c echo.Context) error {
	st := search.Orders.Decode(c.QueryParams())
	res, err := s.catalog.Orders(c.Request().Context(), st)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPageResponse(st, res))
}

// apiQueryCustomers принимает JSON с полями схемы клиентов и выполняет POST-вариант запроса.
func (s *Server) apiQueryCustomers(c echo.Context) error {
	var body map[string]any
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json body")
	}
	values, err := valuesFromBody(search.Customers, body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	st := search.Customers.Decode(values)
	res, err := s.catalog.CustomersViaPost(c.Request().Context(), st)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPageResponse(st, res))
}

func (s *Server) apiCustomer(c echo.Context) error {
	detail, err := s.catalog.Customer(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"customer":    detail.Customer,
		"orders":      detail.Orders,
		"ordersTotal": detail.OrdersTotal,
	})
}

func (s *Server) apiOrder(c echo.Context) error {
	order, err := s.catalog.Order(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// valuesFromBody переводит JSON-тело в параметры схемы. Списки принимаются массивом
// или строкой через разделитель поля; неизвестные ключи игнорируются.
func valuesFromBody(schema *search.Schema, body map[string]any) (url.Values, error) {
	values := url.Values{}
	for name, raw := range body {
		field, ok := schema.Field(name)
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case string:
			if field.Kind == search.KindStrings && field.Separator != "" {
				values[name] = strings.Split(v, field.Separator)
			} else {
				values.Set(name, v)
			}
		case json.Number:
			values.Set(name, v.String())
		case bool:
			values.Set(name, strconv.FormatBool(v))
		case []any:
			for _, item := range v {
				switch iv := item.(type) {
				case string:
					values.Add(name, iv)
				case json.Number:
					values.Add(name, iv.String())
				default:
					return nil, fmt.Errorf("field %s: unsupported list element %T", name, item)
				}
			}
		default:
			return nil, fmt.Errorf("field %s: unsupported value %T", name, raw)
		}
	}
	return values, nil
}

package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vladislavdragonenkov/ordersconsole/internal/search"
	"github.com/vladislavdragonenkov/ordersconsole/internal/view"
)

type customerPage struct {
	Title       string
	Fields      []view.DetailField
	Orders      view.Table
	OrdersTotal int
	OrdersURL   string
}

type orderPage struct {
	Title  string
	Fields []view.DetailField
	Lines  view.Table
}

func (s *Server) showCustomer(c echo.Context) error {
	detail, err := s.catalog.Customer(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	customer := detail.Customer
	orders := search.Orders.Defaults().With("customerId", customer.ID)
	return c.Render(http.StatusOK, "customer", customerPage{
		Title:       customer.CompanyName,
		Fields:      view.CustomerDetails(customer),
		Orders:      view.BuildTable(view.OrderColumns, detail.Orders),
		OrdersTotal: detail.OrdersTotal,
		OrdersURL:   withQuery("/orders", orders.Query()),
	})
}

func (s *Server) showOrder(c echo.Context) error {
	order, err := s.catalog.Order(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "order", orderPage{
		Title:  "Order " + c.Param("id"),
		Fields: view.OrderDetails(order),
		Lines:  view.BuildTable(view.OrderLineColumns, order.Details),
	})
}

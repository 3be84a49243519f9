package view

import (
	"net/url"
	"slices"
	"strconv"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
)

// Cell: ячейка таблицы; Href пустой, если ячейка не ссылка.
type Cell struct {
	Text string
	Href string
}

// Column описывает колонку таблицы записей типа T.
type Column[T any] struct {
	Key   string
	Label string
	Value func(T) string
	Href  func(T) string
}

// Table: готовая к выводу таблица.
type Table struct {
	Headers []string
	Rows    [][]Cell
}

// Empty сообщает, что строк нет.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// BuildTable строит таблицу по колонкам.
func BuildTable[T any](cols []Column[T], items []T) Table {
	table := Table{Headers: make([]string, 0, len(cols)), Rows: make([][]Cell, 0, len(items))}
	for _, c := range cols {
		table.Headers = append(table.Headers, c.Label)
	}
	for _, item := range items {
		row := make([]Cell, 0, len(cols))
		for _, c := range cols {
			cell := Cell{Text: c.Value(item)}
			if c.Href != nil {
				cell.Href = c.Href(item)
			}
			row = append(row, cell)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// Project оставляет колонки из keys в порядке объявления. Пустой keys: все колонки.
func Project[T any](cols []Column[T], keys []string) []Column[T] {
	if len(keys) == 0 {
		return cols
	}
	out := make([]Column[T], 0, len(keys))
	for _, c := range cols {
		if slices.Contains(keys, c.Key) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return cols
	}
	return out
}

// CustomerHref и OrderHref: адреса детальных страниц.
func CustomerHref(id string) string { return "/customers/" + url.PathEscape(id) }

func OrderHref(id int64) string { return "/orders/" + strconv.FormatInt(id, 10) }

func intText(n int64) string { return strconv.FormatInt(n, 10) }

func moneyText(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

// CustomerColumns: колонки списка клиентов.
var CustomerColumns = []Column[domain.Customer]{
	{Key: "id", Label: "ID", Value: func(c domain.Customer) string { return c.ID }, Href: func(c domain.Customer) string { return CustomerHref(c.ID) }},
	{Key: "companyName", Label: "Company Name", Value: func(c domain.Customer) string { return c.CompanyName }},
	{Key: "contactName", Label: "Contact Name", Value: func(c domain.Customer) string { return c.ContactName }},
	{Key: "contactTitle", Label: "Contact Title", Value: func(c domain.Customer) string { return c.ContactTitle }},
	{Key: "address", Label: "Address", Value: func(c domain.Customer) string { return c.Address }},
	{Key: "city", Label: "City", Value: func(c domain.Customer) string { return c.City }},
	{Key: "region", Label: "Region", Value: func(c domain.Customer) string { return c.Region }},
	{Key: "postalCode", Label: "Postal Code", Value: func(c domain.Customer) string { return c.PostalCode }},
	{Key: "country", Label: "Country", Value: func(c domain.Customer) string { return c.Country }},
	{Key: "phone", Label: "Phone", Value: func(c domain.Customer) string { return c.Phone }},
	{Key: "fax", Label: "Fax", Value: func(c domain.Customer) string { return c.Fax }},
}

// OrderColumns: колонки списка заказов. Даты выводятся как YYYY-MM-DD.
var OrderColumns = []Column[domain.Order]{
	{Key: "id", Label: "ID", Value: func(o domain.Order) string { return intText(o.ID) }, Href: func(o domain.Order) string { return OrderHref(o.ID) }},
	{Key: "customerId", Label: "Customer ID", Value: func(o domain.Order) string { return o.CustomerID }, Href: func(o domain.Order) string {
		if o.CustomerID == "" {
			return ""
		}
		return CustomerHref(o.CustomerID)
	}},
	{Key: "employeeId", Label: "Employee ID", Value: func(o domain.Order) string { return intText(o.EmployeeID) }},
	{Key: "orderDate", Label: "Order Date", Value: domain.Order.OrderedOn},
	{Key: "requiredDate", Label: "Required Date", Value: domain.Order.RequiredOn},
	{Key: "shippedDate", Label: "Shipped Date", Value: domain.Order.ShippedOn},
	{Key: "shipVia", Label: "Ship Via", Value: func(o domain.Order) string { return intText(o.ShipVia) }},
	{Key: "freight", Label: "Freight", Value: func(o domain.Order) string { return moneyText(o.Freight) }},
	{Key: "shipName", Label: "Ship Name", Value: func(o domain.Order) string { return o.ShipName }},
	{Key: "shipAddress", Label: "Ship Address", Value: func(o domain.Order) string { return o.ShipAddress }},
	{Key: "shipCity", Label: "Ship City", Value: func(o domain.Order) string { return o.ShipCity }},
	{Key: "shipPostalCode", Label: "Ship Postal Code", Value: func(o domain.Order) string { return o.ShipPostalCode }},
	{Key: "shipCountry", Label: "Ship Country", Value: func(o domain.Order) string { return o.ShipCountry }},
}

// DetailField: строка детальной карточки.
type DetailField struct {
	Label string
	Value string
	Href  string
}

// CustomerDetails возвращает строки карточки клиента.
func CustomerDetails(c domain.Customer) []DetailField {
	return details(CustomerColumns, c)
}

// OrderDetails возвращает строки карточки заказа.
func OrderDetails(o domain.Order) []DetailField {
	return details(OrderColumns, o)
}

func details[T any](cols []Column[T], item T) []DetailField {
	out := make([]DetailField, 0, len(cols))
	for _, c := range cols {
		f := DetailField{Label: c.Label, Value: c.Value(item)}
		if c.Href != nil && c.Key != "id" {
			f.Href = c.Href(item)
		}
		out = append(out, f)
	}
	return out
}

// OrderLineColumns: колонки позиций заказа.
var OrderLineColumns = []Column[domain.OrderDetail]{
	{Key: "productId", Label: "Product ID", Value: func(d domain.OrderDetail) string { return intText(d.ProductID) }},
	{Key: "unitPrice", Label: "Unit Price", Value: func(d domain.OrderDetail) string { return moneyText(d.UnitPrice) }},
	{Key: "quantity", Label: "Quantity", Value: func(d domain.OrderDetail) string { return intText(d.Quantity) }},
	{Key: "discount", Label: "Discount", Value: func(d domain.OrderDetail) string { return strconv.FormatFloat(d.Discount*100, 'f', 0, 64) + "%" }},
	{Key: "subtotal", Label: "Subtotal", Value: func(d domain.OrderDetail) string { return moneyText(d.Subtotal()) }},
}

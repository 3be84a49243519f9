package search

import "github.com/vladislavdragonenkov/ordersconsole/internal/domain"

const (
	// DefaultTake: размер страницы по умолчанию.
	DefaultTake = 10
)

// PageSizes: размеры страниц, предлагаемые в интерфейсе.
var PageSizes = []int{10, 20, 50, 100}

var customerSortOptions = []Option{
	{Value: "id", Label: "ID"},
	{Value: "companyName", Label: "Company Name"},
	{Value: "contactName", Label: "Contact Name"},
	{Value: "contactTitle", Label: "Contact Title"},
	{Value: "address", Label: "Address"},
	{Value: "city", Label: "City"},
	{Value: "postalCode", Label: "Postal Code"},
	{Value: "country", Label: "Country"},
	{Value: "phone", Label: "Phone"},
	{Value: "fax", Label: "Fax"},
}

var customerColumnOptions = []Option{
	{Value: "id", Label: "ID"},
	{Value: "companyName", Label: "Company Name"},
	{Value: "contactName", Label: "Contact Name"},
	{Value: "contactTitle", Label: "Contact Title"},
	{Value: "address", Label: "Address"},
	{Value: "city", Label: "City"},
	{Value: "region", Label: "Region"},
	{Value: "postalCode", Label: "Postal Code"},
	{Value: "country", Label: "Country"},
	{Value: "phone", Label: "Phone"},
	{Value: "fax", Label: "Fax"},
}

var orderSortOptions = []Option{
	{Value: "id", Label: "ID"},
	{Value: "customerId", Label: "Customer ID"},
	{Value: "employeeId", Label: "Employee ID"},
	{Value: "orderDate", Label: "Order Date"},
	{Value: "requiredDate", Label: "Required Date"},
	{Value: "shippedDate", Label: "Shipped Date"},
	{Value: "shipVia", Label: "Ship Via"},
	{Value: "freight", Label: "Freight"},
	{Value: "shipName", Label: "Ship Name"},
	{Value: "shipAddress", Label: "Ship Address"},
	{Value: "shipCity", Label: "Ship City"},
	{Value: "shipPostalCode", Label: "Ship Postal Code"},
	{Value: "shipCountry", Label: "Ship Country"},
}

// Customers: схема страницы /customers.
var Customers = NewSchema(string(domain.EntityCustomers),
	Creatable("ids", "IDs"),
	Text("companyName", "Company Name"),
	Text("contactName", "Contact Name"),
	Text("contactTitle", "Contact Title"),
	Text("address", "Address"),
	Text("city", "City"),
	Text("postalCode", "Postal Code"),
	Text("country", "Country"),
	Text("countryStartsWith", "Country Starts With"),
	Text("phone", "Phone"),
	Text("fax", "Fax"),
	Select("fields", "Fields", customerColumnOptions),
	Select("orderBy", "Order By", customerSortOptions),
	Select("orderByDesc", "Order By Desc", customerSortOptions),
	Paging("skip", 0, 0),
	Paging("take", DefaultTake, 1),
)

// Orders: схема страницы /orders.
var Orders = NewSchema(string(domain.EntityOrders),
	Creatable("ids", "IDs"),
	Text("freight", "Freight"),
	Text("orderDate", "Order Date"),
	Text("requiredDate", "Required Date"),
	Text("shippedDate", "Shipped Date"),
	Text("customerId", "Customer ID"),
	Text("employeeId", "Employee ID"),
	Text("shipVia", "Ship Via"),
	Text("shipName", "Ship Name"),
	Text("shipAddress", "Ship Address"),
	Text("shipCity", "Ship City"),
	Text("shipPostalCode", "Ship Postal Code"),
	Text("shipCountry", "Ship Country"),
	Select("orderBy", "Order By", orderSortOptions),
	Select("orderByDesc", "Order By Desc", orderSortOptions),
	Paging("skip", 0, 0),
	Paging("take", DefaultTake, 1),
)

// For возвращает схему сущности.
func For(entity domain.Entity) (*Schema, error) {
	switch entity {
	case domain.EntityCustomers:
		return Customers, nil
	case domain.EntityOrders:
		return Orders, nil
	default:
		return nil, domain.ErrUnknownEntity
	}
}

// Canonicalize приводит сырую строку запроса к канонической форме для сущности.
func Canonicalize(entity domain.Entity, rawQuery string) (string, error) {
	schema, err := For(entity)
	if err != nil {
		return "", err
	}
	return schema.Parse(rawQuery).Query(), nil
}

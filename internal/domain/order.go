package domain

// Order: запись заказа в формате Query API. Даты приходят в виде /Date(ms±off)/.
type Order struct {
	ID             int64         `json:"id"`
	CustomerID     string        `json:"customerId"`
	EmployeeID     int64         `json:"employeeId"`
	OrderDate      string        `json:"orderDate"`
	RequiredDate   string        `json:"requiredDate"`
	ShippedDate    string        `json:"shippedDate"`
	ShipVia        int64         `json:"shipVia"`
	Freight        float64       `json:"freight"`
	ShipName       string        `json:"shipName"`
	ShipAddress    string        `json:"shipAddress"`
	ShipCity       string        `json:"shipCity"`
	ShipRegion     string        `json:"shipRegion"`
	ShipPostalCode string        `json:"shipPostalCode"`
	ShipCountry    string        `json:"shipCountry"`
	Details        []OrderDetail `json:"orderDetails,omitempty"`
}

// OrderDetail: позиция заказа.
type OrderDetail struct {
	OrderID   int64   `json:"orderId"`
	ProductID int64   `json:"productId"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int64   `json:"quantity"`
	Discount  float64 `json:"discount"`
}

// Subtotal возвращает стоимость позиции с учётом скидки.
func (d OrderDetail) Subtotal() float64 {
	return d.UnitPrice * float64(d.Quantity) * (1 - d.Discount)
}

// OrderedOn возвращает дату оформления в виде YYYY-MM-DD или N/A.
func (o Order) OrderedOn() string { return FormatDotNetDate(o.OrderDate) }

// RequiredOn возвращает требуемую дату доставки.
func (o Order) RequiredOn() string { return FormatDotNetDate(o.RequiredDate) }

// ShippedOn возвращает дату отгрузки; для неотгруженных заказов N/A.
func (o Order) ShippedOn() string { return FormatDotNetDate(o.ShippedDate) }

// Shipped сообщает, отгружен ли заказ.
func (o Order) Shipped() bool {
	_, ok := ParseDotNetDate(o.ShippedDate)
	return ok
}

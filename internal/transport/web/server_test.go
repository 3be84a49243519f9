package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ordersconsole/internal/auth"
	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
	"github.com/vladislavdragonenkov/ordersconsole/internal/search"
	"github.com/vladislavdragonenkov/ordersconsole/internal/service/catalog"
	"github.com/vladislavdragonenkov/ordersconsole/internal/service/views"
	"github.com/vladislavdragonenkov/ordersconsole/internal/storage/memory"
)

type stubCatalog struct {
	mu          sync.Mutex
	customers   []domain.Customer
	orders      []domain.Order
	ordersOf    map[string][]domain.Order
	total       int
	err         error
	lastState   search.State
	viaPost     bool
	invalidated []domain.Entity
	purged      int
}

var _ Catalog = (*stubCatalog)(nil)

func (s *stubCatalog) remember(st search.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastState = st
}

func (s *stubCatalog) Customers(_ context.Context, st search.State) (catalog.Result[domain.Customer], error) {
	s.remember(st)
	if s.err != nil {
		return catalog.Result[domain.Customer]{}, s.err
	}
	return catalog.Result[domain.Customer]{
		Page: domain.CustomerPage{Total: max(s.total, len(s.customers)), Results: s.customers},
		Key:  catalog.Key(domain.EntityCustomers, st.Upstream()),
	}, nil
}

func (s *stubCatalog) CustomersViaPost(ctx context.Context, st search.State) (catalog.Result[domain.Customer], error) {
	s.mu.Lock()
	s.viaPost = true
	s.mu.Unlock()
	return s.Customers(ctx, st)
}

func (s *stubCatalog) Orders(_ context.Context, st search.State) (catalog.Result[domain.Order], error) {
	s.remember(st)
	if s.err != nil {
		return catalog.Result[domain.Order]{}, s.err
	}
	return catalog.Result[domain.Order]{
		Page:   domain.OrderPage{Total: max(s.total, len(s.orders)), Results: s.orders},
		Key:    catalog.Key(domain.EntityOrders, st.Upstream()),
		Cached: true,
	}, nil
}

func (s *stubCatalog) Customer(_ context.Context, id string) (catalog.CustomerDetail, error) {
	for _, c := range s.customers {
		if c.ID == id {
			return catalog.CustomerDetail{Customer: c, Orders: s.ordersOf[id], OrdersTotal: 6}, nil
		}
	}
	return catalog.CustomerDetail{}, domain.ErrCustomerNotFound
}

func (s *stubCatalog) Order(_ context.Context, id string) (domain.Order, error) {
	for _, o := range s.orders {
		if id == "10248" && o.ID == 10248 {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

func (s *stubCatalog) Invalidate(entity domain.Entity) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = append(s.invalidated, entity)
	return 1
}

func (s *stubCatalog) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purged++
	return 2
}

type recordingObserver struct {
	mu           sync.Mutex
	routes       []string
	invalidation int
}

func (r *recordingObserver) ObserveHTTP(route, method string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, method+" "+route)
}

func (r *recordingObserver) Invalidated(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidation++
}

func quietLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func newCatalog() *stubCatalog {
	return &stubCatalog{
		customers: []domain.Customer{
			{ID: "ALFKI", CompanyName: "Alfreds Futterkiste", Country: "Germany"},
			{ID: "ANATR", CompanyName: "Ana Trujillo Emparedados", Country: "Mexico"},
		},
		orders: []domain.Order{
			{ID: 10248, CustomerID: "VINET", OrderDate: "/Date(836438400000-0000)/", Freight: 32.38,
				Details: []domain.OrderDetail{{OrderID: 10248, ProductID: 11, UnitPrice: 14, Quantity: 12}}},
		},
		ordersOf: map[string][]domain.Order{
			"ALFKI": {{ID: 10643, CustomerID: "ALFKI", OrderDate: "/Date(872035200000)/", ShipCity: "Berlin"}},
		},
	}
}

func newTestServer(t *testing.T, cat *stubCatalog, opts ...Option) (*Server, *views.Service) {
	t.Helper()

	viewSvc := views.NewService(memory.NewSavedViewRepository(), views.WithLogger(quietLogger()))
	srv, err := NewServer(cat, viewSvc, append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return srv, viewSvc
}

func do(t *testing.T, srv *Server, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func postForm(t *testing.T, srv *Server, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, srv, http.MethodPost, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func TestListRedirectsToCanonicalQuery(t *testing.T) {
	t.Parallel()

	cat := newCatalog()
	srv, _ := newTestServer(t, cat)

	tests := map[string]string{
		"/customers?take=10&country=Germany&skip=0":       "/customers?country=Germany",
		"/customers?unknown=1":                            "/customers",
		"/customers?take=abc":                             "/customers",
		"/orders?shipCountry=France&customerId=VINET":     "/orders?customerId=VINET&shipCountry=France",
		"/customers?ids=ALFKI&ids_add=ANATR":              "/customers?ids=ALFKI&ids=ANATR",
		"/customers?ids=ALFKI&ids=ANATR&ids_remove=ALFKI": "/customers?ids=ANATR",
		"/customers?ids=ALFKI&ids_add=ALFKI":              "/customers?ids=ALFKI",
		"/orders?customerId=VINET&reset=":                 "/orders",
		"/":                                               "/customers",
	}
	for target, want := range tests {
		rec := do(t, srv, http.MethodGet, target, nil, "")
		require.Equal(t, http.StatusSeeOther, rec.Code, target)
		require.Equal(t, want, rec.Header().Get("Location"), target)
	}
}

func TestListCustomersRendersTable(t *testing.T) {
	t.Parallel()

	cat := newCatalog()
	srv, _ := newTestServer(t, cat)

	rec := do(t, srv, http.MethodGet, "/customers?country=Germany", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Alfreds Futterkiste")
	require.Contains(t, body, `href="/customers/ALFKI"`)
	require.Contains(t, body, `name="country" value="Germany"`)
	require.Contains(t, body, "Reset")
	require.Equal(t, "Germany", cat.lastState.String("country"))
}

func TestListCustomersProjectsColumns(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, newCatalog())

	rec := do(t, srv, http.MethodGet, "/customers?fields=companyName", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "<th>Company Name</th>")
	require.NotContains(t, body, "<th>Contact Name</th>")
}

func TestListOrdersPagination(t *testing.T) {
	t.Parallel()

	cat := newCatalog()
	cat.total = 25
	srv, _ := newTestServer(t, cat)

	rec := do(t, srv, http.MethodGet, "/orders?skip=20", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `<a href="/orders?skip=10">← Previous</a>`)
	require.Contains(t, body, `<span class="muted">Next →</span>`)
	require.Contains(t, body, "1996-07-04")
	require.Contains(t, body, "(cached)")
	require.Contains(t, body, `<a href="/orders?take=20">20</a>`)
}

func TestListShowsInlineUpstreamError(t *testing.T) {
	t.Parallel()

	cat := newCatalog()
	cat.err = &testUpstreamError{}
	srv, _ := newTestServer(t, cat)

	rec := do(t, srv, http.MethodGet, "/orders", nil, "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "Failed to load orders")
	require.Contains(t, rec.Body.String(), `action="/orders"`)
}

type testUpstreamError struct{}

func (*testUpstreamError) Error() string { return "query api returned 503" }
func (*testUpstreamError) Unwrap() error { return domain.ErrUpstream }

func TestDetailPages(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, newCatalog())

	rec := do(t, srv, http.MethodGet, "/customers/ALFKI", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Alfreds Futterkiste")
	require.Contains(t, rec.Body.String(), `href="/orders?customerId=ALFKI"`)
	require.Contains(t, rec.Body.String(), `<a href="/orders/10643">10643</a>`)
	require.Contains(t, rec.Body.String(), "1997-08-20")
	require.Contains(t, rec.Body.String(), "Berlin")

	rec = do(t, srv, http.MethodGet, "/customers/ANATR", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "/orders/10643")

	rec = do(t, srv, http.MethodGet, "/customers/NOPE", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Customer not found")

	rec = do(t, srv, http.MethodGet, "/orders/10248", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Order 10248")
	require.Contains(t, rec.Body.String(), "168.00")

	rec = do(t, srv, http.MethodGet, "/orders/1", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "Order not found")

	rec = do(t, srv, http.MethodGet, "/products", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI(t *testing.T) {
	t.Parallel()

	cat := newCatalog()
	srv, _ := newTestServer(t, cat)

	rec := do(t, srv, http.MethodGet, "/api/orders?customerId=VINET&take=20", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Query   string         `json:"query"`
		Key     string         `json:"key"`
		Cached  bool           `json:"cached"`
		Total   int            `json:"total"`
		State   map[string]any `json:"state"`
		Results []domain.Order `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, "customerId=VINET&take=20", page.Query)
	require.Equal(t, "orders?customerId=VINET&include=total&skip=0&take=20", page.Key)
	require.True(t, page.Cached)
	require.Len(t, page.Results, 1)
	require.EqualValues(t, 20, page.State["take"])

	rec = do(t, srv, http.MethodGet, "/api/customers/ALFKI", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Customer    domain.Customer `json:"customer"`
		Orders      []domain.Order  `json:"orders"`
		OrdersTotal int             `json:"ordersTotal"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Equal(t, "ALFKI", detail.Customer.ID)
	require.Len(t, detail.Orders, 1)
	require.EqualValues(t, 10643, detail.Orders[0].ID)
	require.Equal(t, 6, detail.OrdersTotal)

	rec = do(t, srv, http.MethodGet, "/api/customers/NOPE", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"customer not found"}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/orders/10248", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"customerId":"VINET"`)

	cat.err = &testUpstreamError{}
	rec = do(t, srv, http.MethodGet, "/api/customers", nil, "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.JSONEq(t, `{"error":"query api returned 503"}`, rec.Body.String())
}

func TestAPIQueryCustomersViaPost(t *testing.T) {
	t.Parallel()

	cat := newCatalog()
	srv, _ := newTestServer(t, cat)

	body := `{"countryStartsWith":"Ge","orderBy":"city,country","ids":["ALFKI","ANATR"],"take":20,"unknown":true}`
	rec := do(t, srv, http.MethodPost, "/api/customers/query", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, cat.viaPost)
	require.Equal(t, "Ge", cat.lastState.String("countryStartsWith"))
	require.Equal(t, []string{"city", "country"}, cat.lastState.Strings("orderBy"))
	require.Equal(t, []string{"ALFKI", "ANATR"}, cat.lastState.Strings("ids"))
	require.Equal(t, 20, cat.lastState.Take())

	rec = do(t, srv, http.MethodPost, "/api/customers/query", strings.NewReader("{"), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/customers/query", strings.NewReader(`{"country":{"a":1}}`), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSavedViewsFlow(t *testing.T) {
	t.Parallel()

	srv, viewSvc := newTestServer(t, newCatalog())

	rec := postForm(t, srv, "/views", url.Values{
		"name":   {"German customers"},
		"entity": {"customers"},
		"query":  {"take=10&country=Germany"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/customers?country=Germany", rec.Header().Get("Location"))

	saved, err := viewSvc.List(context.Background(), domain.EntityCustomers)
	require.NoError(t, err)
	require.Len(t, saved, 1)

	rec = do(t, srv, http.MethodGet, "/views", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "German customers")

	rec = do(t, srv, http.MethodGet, "/customers", nil, "")
	require.Contains(t, rec.Body.String(), `<a href="/customers?country=Germany">German customers</a>`)

	rec = do(t, srv, http.MethodGet, "/views/"+saved[0].ID, nil, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/customers?country=Germany", rec.Header().Get("Location"))

	rec = postForm(t, srv, "/views/"+saved[0].ID+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/views", rec.Header().Get("Location"))

	rec = do(t, srv, http.MethodGet, "/views/"+saved[0].ID, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = postForm(t, srv, "/views", url.Values{"name": {"  "}, "entity": {"orders"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postForm(t, srv, "/views", url.Values{"name": {"x"}, "entity": {"products"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidateCache(t *testing.T) {
	t.Parallel()

	cat := newCatalog()
	observer := &recordingObserver{}
	srv, _ := newTestServer(t, cat, WithObserver(observer))

	rec := postForm(t, srv, "/cache/invalidate", url.Values{"entity": {"orders"}, "return": {"/orders?customerId=VINET"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/orders?customerId=VINET", rec.Header().Get("Location"))
	require.Equal(t, []domain.Entity{domain.EntityOrders}, cat.invalidated)

	rec = postForm(t, srv, "/cache/invalidate", url.Values{"return": {"https://evil.example/customers"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/customers", rec.Header().Get("Location"))
	require.Equal(t, 1, cat.purged)

	observer.mu.Lock()
	defer observer.mu.Unlock()
	require.Equal(t, 2, observer.invalidation)
	require.Contains(t, observer.routes, "POST /cache/invalidate")
}

func TestConsoleRequiresTokenWhenSecretSet(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, newCatalog(), WithValidator(auth.NewValidator("s3cret")))

	rec := do(t, srv, http.MethodGet, "/api/orders", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := auth.Sign("s3cret", "operator", time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	srv.Handler().ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, newCatalog())

	rec := do(t, srv, http.MethodGet, "/customers", nil, "")
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/customers", nil)
	req.Header.Set("X-Request-Id", "abc")
	res := httptest.NewRecorder()
	srv.Handler().ServeHTTP(res, req)
	require.Equal(t, "abc", res.Header().Get("X-Request-Id"))
}

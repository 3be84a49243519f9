package search_test

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ordersconsole/internal/search"
)

func TestDecodeMissingFieldsUseDefaults(t *testing.T) {
	st := search.Customers.Decode(url.Values{})

	require.Equal(t, 0, st.Skip())
	require.Equal(t, search.DefaultTake, st.Take())
	require.Empty(t, st.String("companyName"))
	require.Empty(t, st.Strings("ids"))
	require.False(t, st.HasFilters())
	require.Equal(t, "", st.Query())
}

func TestEncodeOmitsDefaults(t *testing.T) {
	st := search.Customers.Defaults().
		With("country", "Germany").
		WithInt("take", search.DefaultTake).
		WithInt("skip", 0)

	require.Equal(t, "country=Germany", st.Query())
	if diff := cmp.Diff(url.Values{"country": {"Germany"}}, st.Encode()); diff != "" {
		t.Fatalf("encode mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryIsCanonicalSchemaOrder(t *testing.T) {
	a := search.Customers.Parse("take=20&country=Germany&ids=BERGS&ids=ALFKI")
	b := search.Customers.Parse("ids=BERGS&country=Germany&ids=ALFKI&take=20&unknown=1")

	require.True(t, a.Equal(b))
	require.Equal(t, "ids=BERGS&ids=ALFKI&country=Germany&take=20", a.Query())
	require.Equal(t, a.Query(), b.Query())
}

func TestRoundTripStable(t *testing.T) {
	cases := []string{
		"",
		"ids=ALFKI&ids=ANATR",
		"companyName=Around+the+Horn&orderBy=city&orderBy=country&skip=40&take=20",
		"contactName=Ana%20Trujillo&fields=id&fields=companyName",
		"countryStartsWith=U&orderByDesc=id",
	}

	for _, raw := range cases {
		t.Run(raw, func(t *testing.T) {
			first := search.Customers.Parse(raw)
			second := search.Customers.Decode(first.Encode())
			third := search.Customers.Parse(second.Query())

			require.True(t, first.Equal(second), "decode(encode(S)) must equal S")
			require.True(t, second.Equal(third))
			require.Equal(t, first.Query(), third.Query())
		})
	}
}

func TestMalformedValuesFallBackToDefaults(t *testing.T) {
	cases := []struct {
		raw      string
		wantSkip int
		wantTake int
	}{
		{raw: "take=abc", wantSkip: 0, wantTake: search.DefaultTake},
		{raw: "take=0", wantSkip: 0, wantTake: search.DefaultTake},
		{raw: "take=-5", wantSkip: 0, wantTake: search.DefaultTake},
		{raw: "skip=-10&take=20", wantSkip: 0, wantTake: 20},
		{raw: "skip=1.5", wantSkip: 0, wantTake: search.DefaultTake},
		{raw: "skip=%zz&take=50", wantSkip: 0, wantTake: 50},
		{raw: "skip=30&take=50", wantSkip: 30, wantTake: 50},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			st := search.Orders.Parse(tc.raw)
			if st.Skip() != tc.wantSkip || st.Take() != tc.wantTake {
				t.Fatalf("got skip=%d take=%d want skip=%d take=%d", st.Skip(), st.Take(), tc.wantSkip, tc.wantTake)
			}
		})
	}
}

func TestEmptyListElementsDropped(t *testing.T) {
	st := search.Customers.Parse("ids=&ids=ALFKI&ids=")
	require.Equal(t, []string{"ALFKI"}, st.Strings("ids"))
	require.Equal(t, "ids=ALFKI", st.Query())
}

func TestStateIsImmutable(t *testing.T) {
	base := search.Customers.Defaults().WithStrings("ids", []string{"ALFKI"})
	changed := base.WithStrings("ids", []string{"ALFKI", "BERGS"}).With("city", "Berlin")

	require.Equal(t, []string{"ALFKI"}, base.Strings("ids"))
	require.Empty(t, base.String("city"))
	require.Equal(t, []string{"ALFKI", "BERGS"}, changed.Strings("ids"))

	got := changed.Strings("ids")
	got[0] = "MUTATED"
	require.Equal(t, "ALFKI", changed.Strings("ids")[0])
}

func TestHasFiltersIgnoresPaging(t *testing.T) {
	st := search.Orders.Defaults().WithInt("skip", 20).WithInt("take", 50)
	require.False(t, st.HasFilters())

	st = st.With("shipCountry", "France")
	require.True(t, st.HasFilters())

	reset := st.Reset()
	require.False(t, reset.HasFilters())
	require.Equal(t, 0, reset.Skip())
	require.Equal(t, search.DefaultTake, reset.Take())
}

func TestUpstreamMapping(t *testing.T) {
	st := search.Customers.Parse("ids=ALFKI&ids=BERGS&city=London&orderBy=country&orderBy=city&orderByDesc=id&fields=id&fields=companyName&skip=20")

	want := url.Values{
		"include":     {"total"},
		"ids":         {"ALFKI", "BERGS"},
		"city":        {"London"},
		"orderBy":     {"country,city"},
		"orderByDesc": {"id"},
		"fields":      {"id,companyName"},
		"skip":        {"20"},
		"take":        {"10"},
	}
	if diff := cmp.Diff(want, st.Upstream()); diff != "" {
		t.Fatalf("upstream mismatch (-want +got):\n%s", diff)
	}
}

func TestUpstreamDefaults(t *testing.T) {
	want := url.Values{"include": {"total"}, "skip": {"0"}, "take": {"10"}}
	if diff := cmp.Diff(want, search.Orders.Defaults().Upstream()); diff != "" {
		t.Fatalf("upstream mismatch (-want +got):\n%s", diff)
	}
}

func TestBody(t *testing.T) {
	st := search.Customers.Parse("ids=ALFKI&countryStartsWith=Ge&orderBy=city&take=20")
	want := map[string]any{
		"include":           "total",
		"ids":               []string{"ALFKI"},
		"countryStartsWith": "Ge",
		"orderBy":           "city",
		"skip":              0,
		"take":              20,
	}
	if diff := cmp.Diff(want, st.Body()); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestSetParsesByKind(t *testing.T) {
	st := search.Customers.Defaults()

	st, err := st.Set("ids", "ALFKI, BERGS,,")
	require.NoError(t, err)
	require.Equal(t, []string{"ALFKI", "BERGS"}, st.Strings("ids"))

	st, err = st.Set("take", "50")
	require.NoError(t, err)
	require.Equal(t, 50, st.Take())

	_, err = st.Set("take", "0")
	require.Error(t, err)

	_, err = st.Set("take", "many")
	require.Error(t, err)

	_, err = st.Set("nope", "x")
	require.Error(t, err)

	st = st.Unset("ids")
	require.Empty(t, st.Strings("ids"))
}

func TestMapContainsEveryField(t *testing.T) {
	m := search.Orders.Defaults().Map()
	for _, f := range search.Orders.Fields() {
		if _, ok := m[f.Name]; !ok {
			t.Fatalf("field %q missing from map", f.Name)
		}
	}
	require.Equal(t, []string{}, m["ids"])
}

func TestUnknownFieldPanics(t *testing.T) {
	require.Panics(t, func() {
		_ = search.Customers.Defaults().With("shipCity", "Paris")
	})
	require.Panics(t, func() {
		_ = search.Customers.Defaults().With("take", "10")
	})
}

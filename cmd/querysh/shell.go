package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/vladislavdragonenkov/ordersconsole/internal/domain"
	"github.com/vladislavdragonenkov/ordersconsole/internal/search"
	"github.com/vladislavdragonenkov/ordersconsole/internal/service/catalog"
	"github.com/vladislavdragonenkov/ordersconsole/internal/view"
)

var commands = []string{
	"entity", "set", "unset", "add", "remove", "take", "next", "prev",
	"reset", "show", "url", "help", "quit", "exit",
}

var errUsage = errors.New("usage")

// querier: то, что оболочке нужно от слоя данных.
type querier interface {
	Customers(ctx context.Context, st search.State) (catalog.Result[domain.Customer], error)
	Orders(ctx context.Context, st search.State) (catalog.Result[domain.Order], error)
}

type shell struct {
	cat   querier
	out   io.Writer
	state search.State
	// total последнего ответа; -1, пока запрос не выполнялся.
	total int
}

func newShell(cat querier, out io.Writer) (*shell, error) {
	if cat == nil {
		return nil, errors.New("querysh: nil catalog")
	}
	return &shell{cat: cat, out: out, state: search.Customers.Defaults(), total: -1}, nil
}

func (s *shell) entity() domain.Entity { return domain.Entity(s.state.Schema().Name()) }

func (s *shell) switchEntity(name, rawQuery string) error {
	entity, err := domain.ParseEntity(name)
	if err != nil {
		return err
	}
	schema, err := search.For(entity)
	if err != nil {
		return err
	}
	s.state = schema.Parse(rawQuery)
	s.total = -1
	return nil
}

// exec выполняет одну команду. quit=true завершает оболочку.
func (s *shell) exec(ctx context.Context, line string) (quit bool, err error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		s.printHelp()
		return false, nil
	case "url":
		s.printURL()
		return false, nil
	case "show", "run":
		return false, s.show(ctx)
	case "entity":
		if len(args) < 1 {
			return false, fmt.Errorf("%w: entity customers|orders [query]", errUsage)
		}
		if err := s.switchEntity(args[0], strings.Join(args[1:], "")); err != nil {
			return false, err
		}
	case "set":
		if len(args) < 2 {
			return false, fmt.Errorf("%w: set <field> <value>", errUsage)
		}
		next, err := s.state.Set(args[0], strings.Join(args[1:], " "))
		if err != nil {
			return false, err
		}
		s.state = next.WithInt("skip", 0)
	case "unset":
		if len(args) != 1 {
			return false, fmt.Errorf("%w: unset <field>", errUsage)
		}
		s.state = s.state.Unset(args[0]).WithInt("skip", 0)
	case "add", "remove":
		if len(args) < 2 {
			return false, fmt.Errorf("%w: %s <field> <value>", errUsage, cmd)
		}
		if err := s.applyMulti(cmd, args[0], strings.Join(args[1:], " ")); err != nil {
			return false, err
		}
	case "take":
		if len(args) != 1 {
			return false, fmt.Errorf("%w: take <n>", errUsage)
		}
		next, err := s.state.Set("take", args[0])
		if err != nil {
			return false, err
		}
		s.state = next.WithInt("skip", 0)
	case "next":
		p := view.NewPagination(s.state.Skip(), s.state.Take(), s.total)
		if s.total >= 0 && !p.HasNext() {
			return false, errors.New("already on the last page")
		}
		s.state = s.state.WithInt("skip", p.NextSkip())
	case "prev":
		p := view.NewPagination(s.state.Skip(), s.state.Take(), s.total)
		if !p.HasPrevious() {
			return false, errors.New("already on the first page")
		}
		s.state = s.state.WithInt("skip", p.PreviousSkip())
	case "reset":
		s.state = s.state.Reset()
	default:
		return false, fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}
	return false, s.show(ctx)
}

// applyMulti проводит значение через мультиселект поля, как это делает форма консоли.
func (s *shell) applyMulti(cmd, name, token string) error {
	f, ok := s.state.Schema().Field(name)
	if !ok || f.Kind != search.KindStrings {
		return fmt.Errorf("field %q is not a multi-value field", name)
	}
	ms := view.ForField(f, s.state.Strings(name))
	if cmd == "add" {
		ms = ms.Apply(view.Add(token))
	} else {
		ms = ms.Apply(view.Remove(token))
	}
	s.state = s.state.WithStrings(name, ms.Values()).WithInt("skip", 0)
	return nil
}

func (s *shell) printURL() {
	_, _ = fmt.Fprintln(s.out, s.url())
}

func (s *shell) url() string {
	path := "/" + string(s.entity())
	if q := s.state.Query(); q != "" {
		return path + "?" + q
	}
	return path
}

// show печатает канонический URL и выполняет запрос.
func (s *shell) show(ctx context.Context) error {
	s.printURL()

	var (
		table view.Table
		total int
		key   string
	)
	switch s.entity() {
	case domain.EntityCustomers:
		res, err := s.cat.Customers(ctx, s.state)
		if err != nil {
			return err
		}
		table = view.BuildTable(view.Project(view.CustomerColumns, s.state.Strings("fields")), res.Page.Results)
		total, key = res.Page.Total, res.Key
	case domain.EntityOrders:
		res, err := s.cat.Orders(ctx, s.state)
		if err != nil {
			return err
		}
		table = view.BuildTable(view.OrderColumns, res.Page.Results)
		total, key = res.Page.Total, res.Key
	}
	s.total = total

	p := view.NewPagination(s.state.Skip(), s.state.Take(), total)
	writeTable(s.out, table)
	_, _ = fmt.Fprintf(s.out, "%d-%d of %d (page %d/%d) [%s]\n", p.From(), p.To(), p.Total, p.Page(), p.Pages(), key)
	return nil
}

func writeTable(out io.Writer, table view.Table) {
	if table.Empty() {
		_, _ = fmt.Fprintln(out, "no results")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(table.Headers, "\t"))
	for _, row := range table.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = c.Text
		}
		_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()
}

func (s *shell) printHelp() {
	lines := []string{
		"Commands:",
		"  entity customers|orders [query]  switch entity, optionally with a query string",
		"  set <field> <value>              set a filter (lists are comma separated)",
		"  unset <field>                    clear a filter",
		"  add <field> <value>              add a value to a multi-value filter",
		"  remove <field> <value>           remove a value from a multi-value filter",
		"  take <n>                         page size (" + pageSizes() + ")",
		"  next | prev                      move between pages",
		"  reset                            restore defaults",
		"  show | url                       run the query / print the console URL",
		"  quit                             leave",
		"Fields: " + fieldNames(s.state.Schema()),
	}
	_, _ = fmt.Fprintln(s.out, strings.Join(lines, "\n"))
}

func pageSizes() string {
	out := make([]string, len(search.PageSizes))
	for i, n := range search.PageSizes {
		out[i] = strconv.Itoa(n)
	}
	return strings.Join(out, ", ")
}

func fieldNames(schema *search.Schema) string {
	var names []string
	for _, f := range schema.Fields() {
		if f.IsFilter() {
			names = append(names, f.Name)
		}
	}
	return strings.Join(names, ", ")
}

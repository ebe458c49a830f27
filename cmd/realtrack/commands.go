package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/celerix-dev/realtrack/internal/display"
	"github.com/celerix-dev/realtrack/pkg/collection"
	"github.com/celerix-dev/realtrack/pkg/realty"
	"github.com/celerix-dev/realtrack/pkg/schema"
	"github.com/celerix-dev/realtrack/pkg/sdk"
	"github.com/dustin/go-humanize"
)

var (
	errUsage = errors.New("bad usage")

	// errReported marks a failure the user has already been notified of.
	errReported = errors.New("command failed")
)

// editableStore is what set and delete need from a store. Transactions
// satisfies it with its own FetchAll, which reloads priorities too.
type editableStore interface {
	FetchAll(ctx context.Context, fetchOpts ...collection.FetchOption) ([]schema.Record, error)
	Find(id any) (schema.Record, bool)
	Label() string
	SaveField(ctx context.Context, record schema.Record, field string, value any) bool
	DeleteItem(ctx context.Context, record schema.Record) bool
	SetSelectedItems(recs ...schema.Record)
	DeleteSelected(ctx context.Context) bool
}

type cli struct {
	client sdk.API
	out    io.Writer
	json   bool
	search string
	deps   []collection.Option
}

func (c *cli) run(ctx context.Context, entity, verb string, args []string) error {
	switch entity {
	case "transactions", "transaction", "tx":
		return c.transactions(ctx, verb, args)
	case "buildings", "building":
		return c.buildings(ctx, verb, args)
	case "participants", "participant":
		return c.participants(ctx, verb, args)
	case "priorities", "priority":
		return c.priorities(ctx, verb)
	case "links", "link":
		return c.links(ctx, verb, args)
	default:
		return fmt.Errorf("%w: unknown entity %q", errUsage, entity)
	}
}

func (c *cli) transactions(ctx context.Context, verb string, args []string) error {
	t := realty.NewTransactions(c.client, c.deps...)

	switch verb {
	case "list":
		if _, err := t.Fetch(ctx); err != nil {
			return errReported
		}
		t.SetSearchQuery(c.search)
		recs := t.FilteredItems()
		if c.json {
			return c.printJSON(recs)
		}

		priorities := t.Priorities()
		return c.table([]string{"ID", "NAME", "PRIORITY", "LISTED", "CLOSING", "DESCRIPTION"}, recs, func(r schema.Record) []string {
			return []string{
				r.IDKey(),
				r.String("name"),
				priorityName(r, priorities),
				display.FormatDate(r.String("date_listing")),
				display.FormatDate(r.String("date_closing")),
				display.TruncateText(r.String("description"), 0),
			}
		})
	case "add":
		rec, err := t.AddNew(ctx)
		if err != nil {
			return errReported
		}
		return c.printJSON(rec)
	case "set":
		return c.set(ctx, t, args)
	case "delete", "rm":
		return c.delete(ctx, t, args)
	default:
		return fmt.Errorf("%w: unknown transactions command %q", errUsage, verb)
	}
}

func (c *cli) buildings(ctx context.Context, verb string, args []string) error {
	b := realty.NewBuildings(c.client, c.deps...)

	switch verb {
	case "list":
		if _, err := b.FetchAll(ctx); err != nil {
			return errReported
		}
		b.SetSearchQuery(c.search)
		recs := b.FilteredItems()
		if c.json {
			return c.printJSON(recs)
		}
		return c.table([]string{"ID", "STREET", "ZIP", "SQ FT", "BUILT", "DESCRIPTION"}, recs, func(r schema.Record) []string {
			sqft := display.Placeholder
			if n, ok := r.Number("square_feet"); ok {
				sqft = humanize.Comma(int64(n))
			}
			built := r.String("year_built")
			if built == "" {
				built = display.Placeholder
			}
			return []string{
				r.IDKey(),
				r.String("address_street"),
				r.String("address_zip"),
				sqft,
				built,
				display.TruncateText(r.String("description"), 0),
			}
		})
	case "add":
		if len(args) < 1 {
			return errUsage
		}
		b.OpenForm()
		b.EditForm(func(f *realty.BuildingForm) {
			f.AddressStreet = args[0]
			if len(args) > 1 {
				f.AddressZip = args[1]
			}
			if len(args) > 2 {
				f.Description = args[2]
			}
		})
		rec, err := b.AddNewBuilding(ctx)
		if err != nil {
			return errReported
		}
		return c.printJSON(rec)
	case "set":
		return c.set(ctx, b, args)
	case "delete", "rm":
		return c.delete(ctx, b, args)
	default:
		return fmt.Errorf("%w: unknown buildings command %q", errUsage, verb)
	}
}

func (c *cli) participants(ctx context.Context, verb string, args []string) error {
	p := realty.NewParticipants(c.client, c.deps...)

	switch verb {
	case "list":
		if _, err := p.FetchAll(ctx); err != nil {
			return errReported
		}
		p.SetSearchQuery(c.search)
		recs := p.FilteredItems()
		if c.json {
			return c.printJSON(recs)
		}
		return c.table([]string{"ID", "PARTICIPANT", "NOTES"}, recs, func(r schema.Record) []string {
			return []string{r.IDKey(), r.String("participant"), display.TruncateText(r.String("notes"), 0)}
		})
	case "add":
		if len(args) != 1 {
			return errUsage
		}
		rec, err := p.AddNewParticipant(ctx, args[0])
		if err != nil {
			return errReported
		}
		return c.printJSON(rec)
	case "set":
		return c.set(ctx, p, args)
	case "delete", "rm":
		return c.delete(ctx, p, args)
	default:
		return fmt.Errorf("%w: unknown participants command %q", errUsage, verb)
	}
}

func (c *cli) priorities(ctx context.Context, verb string) error {
	if verb != "list" {
		return fmt.Errorf("%w: unknown priorities command %q", errUsage, verb)
	}

	p := realty.NewPriorities(c.client, c.deps...)
	if _, err := p.FetchAll(ctx); err != nil {
		return errReported
	}
	recs := p.SortedItems()
	if c.json {
		return c.printJSON(recs)
	}
	return c.table([]string{"ID", "NAME", "ORDER"}, recs, func(r schema.Record) []string {
		return []string{r.IDKey(), r.String("name"), r.String("order")}
	})
}

func (c *cli) links(ctx context.Context, verb string, args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	tx, err := c.client.GetByID(ctx, schema.ResourceTransactions, parseID(args[0]))
	if err != nil {
		return fmt.Errorf("transaction %s: %s", args[0], sdk.Message(err))
	}

	l := realty.NewLinks(c.client, c.deps...)
	if err := l.Bind(ctx, tx); err != nil {
		return errReported
	}

	switch verb {
	case "list":
	case "add":
		if len(args) != 2 {
			return errUsage
		}
		if !l.LinkBuilding(ctx, parseID(args[1])) {
			return errReported
		}
	case "delete", "rm":
		if len(args) != 2 {
			return errUsage
		}
		building, ok := findRecord(l.LinkedBuildings(), args[1])
		if !ok {
			return fmt.Errorf("building %s is not linked to transaction %s", args[1], tx.IDKey())
		}
		if !l.UnlinkBuilding(ctx, building) {
			return errReported
		}
	default:
		return fmt.Errorf("%w: unknown links command %q", errUsage, verb)
	}

	recs := l.LinkedBuildings()
	if c.json {
		return c.printJSON(recs)
	}
	fmt.Fprintf(c.out, "Buildings linked to %q:\n", tx.String("name"))
	return c.table([]string{"ID", "STREET", "ZIP"}, recs, func(r schema.Record) []string {
		return []string{r.IDKey(), r.String("address_street"), r.String("address_zip")}
	})
}

// set updates one field of a record. The value is taken as JSON if it parses,
// otherwise as a plain string.
func (c *cli) set(ctx context.Context, s editableStore, args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	if _, err := s.FetchAll(ctx); err != nil {
		return errReported
	}
	rec, ok := s.Find(parseID(args[0]))
	if !ok {
		return fmt.Errorf("%s %s not found", s.Label(), args[0])
	}

	var value any
	if err := json.Unmarshal([]byte(args[2]), &value); err != nil {
		value = args[2]
	}
	if !s.SaveField(ctx, rec, args[1], value) {
		return errReported
	}
	updated, _ := s.Find(rec.ID())
	return c.printJSON(updated)
}

// delete removes one record with DeleteItem, or several with a single bulk
// confirmation.
func (c *cli) delete(ctx context.Context, s editableStore, ids []string) error {
	if len(ids) == 0 {
		return errUsage
	}
	if _, err := s.FetchAll(ctx); err != nil {
		return errReported
	}

	recs := make([]schema.Record, 0, len(ids))
	for _, id := range ids {
		rec, ok := s.Find(parseID(id))
		if !ok {
			return fmt.Errorf("%s %s not found", s.Label(), id)
		}
		recs = append(recs, rec)
	}

	var ok bool
	if len(recs) == 1 {
		ok = s.DeleteItem(ctx, recs[0])
	} else {
		s.SetSelectedItems(recs...)
		ok = s.DeleteSelected(ctx)
	}
	if !ok {
		return errReported
	}
	return nil
}

func (c *cli) table(headers []string, recs []schema.Record, row func(schema.Record) []string) error {
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	writeRow(w, headers)
	for _, r := range recs {
		writeRow(w, row(r))
	}
	return w.Flush()
}

func writeRow(w io.Writer, cols []string) {
	for i, col := range cols {
		if i > 0 {
			io.WriteString(w, "\t")
		}
		io.WriteString(w, col)
	}
	io.WriteString(w, "\n")
}

func (c *cli) printJSON(v any) error {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(bytes))
	return err
}

func priorityName(tx schema.Record, priorities []schema.Record) string {
	if p, ok := findRecord(priorities, schema.IDKey(tx["priority_id"])); ok {
		return p.String("name")
	}
	return display.Placeholder
}

func findRecord(recs []schema.Record, idKey string) (schema.Record, bool) {
	if idKey == "" {
		return nil, false
	}
	for _, r := range recs {
		if r.IDKey() == idKey {
			return r, true
		}
	}
	return nil, false
}

// parseID turns a command-line id into the value sent to the backend: an
// integer when it looks like one, otherwise the string itself.
func parseID(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

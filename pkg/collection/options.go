package collection

import (
	"net/url"
	"slices"

	"github.com/celerix-dev/realtrack/pkg/schema"
	"github.com/celerix-dev/realtrack/pkg/sdk"
)

// DefaultSearchFields are searched when Options.SearchFields is empty.
var DefaultSearchFields = []string{"name", "description", "notes", "id"}

// DefaultDisplayField names records in confirmations when Options.DisplayField
// is empty.
const DefaultDisplayField = "name"

// Options configures a Store. Every field is optional.
type Options struct {
	// DefaultCreateData builds the payload Create sends when given nil.
	DefaultCreateData func() schema.Record
	Sort              SortRule
	SearchFields      []string
	DisplayField      string
	// Label is the noun used in notifications; defaults to the resource name.
	Label string
}

func (o Options) withDefaults(resource string) Options {
	if len(o.SearchFields) == 0 {
		o.SearchFields = DefaultSearchFields
	}
	if o.DisplayField == "" {
		o.DisplayField = DefaultDisplayField
	}
	if o.Label == "" {
		o.Label = resource
	}
	return o
}

// Deps are the capabilities a store reports to the user through.
type Deps struct {
	Notifier  Notifier
	Confirmer Confirmer
	Logger    sdk.Logger
}

// Option supplies one of the Deps.
type Option func(*Deps)

// WithNotifier sets where notifications go. The default logs them.
func WithNotifier(n Notifier) Option {
	return func(d *Deps) {
		d.Notifier = n
	}
}

// WithConfirmer sets who approves deletions. The default declines.
func WithConfirmer(c Confirmer) Option {
	return func(d *Deps) {
		d.Confirmer = c
	}
}

// WithLogger sets the logger.
func WithLogger(l sdk.Logger) Option {
	return func(d *Deps) {
		d.Logger = l
	}
}

// ResolveDeps applies opts and fills in the defaults: a no-op logger, a
// notifier that logs, and a confirmer that declines.
func ResolveDeps(opts ...Option) Deps {
	var d Deps
	for _, o := range opts {
		o(&d)
	}
	if d.Logger == nil {
		d.Logger = sdk.NopLogger{}
	}
	if d.Notifier == nil {
		d.Notifier = LogNotifier(d.Logger)
	}
	if d.Confirmer == nil {
		d.Confirmer = ConfirmNever
	}
	return d
}

type fetchConfig struct {
	query      url.Values
	additional []string
}

// FetchOption changes what FetchAll requests.
type FetchOption func(*fetchConfig)

// WithQuery filters the primary collection server-side.
func WithQuery(params url.Values) FetchOption {
	return func(c *fetchConfig) {
		c.query = params
	}
}

// WithAdditional fetches the named resources alongside the primary one and
// keeps them as auxiliary data.
func WithAdditional(resources ...string) FetchOption {
	return func(c *fetchConfig) {
		for _, name := range resources {
			if !slices.Contains(c.additional, name) {
				c.additional = append(c.additional, name)
			}
		}
	}
}

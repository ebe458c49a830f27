package realty

import (
	"context"
	"errors"
	"sync"

	"github.com/celerix-dev/realtrack/pkg/collection"
	"github.com/celerix-dev/realtrack/pkg/schema"
	"github.com/celerix-dev/realtrack/pkg/sdk"
)

// ErrStreetRequired is returned by AddNewBuilding when the form has no street
// address. Nothing is sent to the server in that case.
var ErrStreetRequired = errors.New("street address is required")

// BuildingForm holds the fields of a building being entered.
type BuildingForm struct {
	AddressStreet         string
	AddressCityID         string
	AddressStateID        string
	AddressNeighborhoodID string
	AddressZip            string
	SquareFeet            *int64
	YearBuilt             *int64
	Description           string
	Notes                 string
}

// Reset blanks every field; numbers become nil and text becomes "".
func (f *BuildingForm) Reset() {
	*f = BuildingForm{}
}

// Record returns the payload sent to create the building.
func (f BuildingForm) Record() schema.Record {
	r := schema.Record{
		"address_street":          f.AddressStreet,
		"address_city_id":         f.AddressCityID,
		"address_state_id":        f.AddressStateID,
		"address_neighborhood_id": f.AddressNeighborhoodID,
		"address_zip":             f.AddressZip,
		"square_feet":             nil,
		"year_built":              nil,
		"description":             f.Description,
		"notes":                   f.Notes,
	}
	if f.SquareFeet != nil {
		r["square_feet"] = *f.SquareFeet
	}
	if f.YearBuilt != nil {
		r["year_built"] = *f.YearBuilt
	}
	return r
}

// Buildings is the store for buildings. New buildings are entered through a
// form rather than the default create payload.
type Buildings struct {
	*collection.Store

	mu       sync.Mutex
	form     BuildingForm
	formOpen bool
	adding   bool
}

func NewBuildings(client sdk.ResourceClient, deps ...collection.Option) *Buildings {
	return &Buildings{
		Store: collection.New(client, schema.ResourceBuildings, collection.Options{
			SearchFields: []string{"address_street", "description", "notes", "id"},
			DisplayField: "address_street",
		}, deps...),
	}
}

// OpenForm resets the form and marks it open.
func (b *Buildings) OpenForm() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.form.Reset()
	b.formOpen = true
}

// CancelForm closes the form and discards its contents.
func (b *Buildings) CancelForm() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.formOpen = false
	b.form.Reset()
}

func (b *Buildings) FormOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.formOpen
}

// Form returns a copy of the form.
func (b *Buildings) Form() BuildingForm {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.form
}

// EditForm applies edit to the form.
func (b *Buildings) EditForm(edit func(f *BuildingForm)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	edit(&b.form)
}

// Adding reports whether AddNewBuilding is waiting for the server.
func (b *Buildings) Adding() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.adding
}

// AddNewBuilding creates a building from the form. A blank street is rejected
// locally with ErrStreetRequired. On success the building is put first, and the
// form is closed and reset.
func (b *Buildings) AddNewBuilding(ctx context.Context) (schema.Record, error) {
	b.mu.Lock()
	form := b.form
	b.mu.Unlock()

	if schema.IsBlank(form.AddressStreet) {
		b.Notify(collection.Notification{Severity: collection.Warning, Message: "Street address is required"})
		return nil, ErrStreetRequired
	}

	b.setAdding(true)
	defer b.setAdding(false)

	created, err := b.Client().Create(ctx, b.Resource(), form.Record())
	if err != nil {
		b.Logger().Errorf("Add building error: %v", err)
		apiErr := sdk.Classify(err)
		b.Notify(collection.Notification{
			Severity: collection.Negative,
			Message:  "Failed to add a building: " + apiErr.Message,
			Detail:   "Error type: " + string(apiErr.Kind),
		})
		return nil, err
	}

	b.Prepend(created)
	b.CancelForm()
	b.Notify(collection.Notification{Severity: collection.Positive, Message: "Building added successfully"})
	return created, nil
}

// List returns the buildings in server order as typed values.
func (b *Buildings) List() ([]schema.Building, error) {
	return schema.AsSlice[schema.Building](b.Items())
}

func (b *Buildings) setAdding(v bool) {
	b.mu.Lock()
	b.adding = v
	b.mu.Unlock()
}

package schema

import (
	"encoding/json"
	"reflect"
	"strconv"
)

// Resource names as exposed by the backend.
const (
	ResourceTransactions = "transactions"
	ResourceBuildings    = "buildings"
	ResourceParticipants = "participants"
	ResourcePriorities   = "priorities"
	ResourceLinks        = "link_transactions_buildings"
)

// ID is a record id in its canonical form (see IDKey). The backend may send ids
// as JSON integers or strings; integer ids are sent back as numbers.
type ID string

// MarshalJSON writes integer ids as numbers and anything else as a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a number, a string or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.(type) {
	case nil, string, float64:
		*id = ID(IDKey(v))
		return nil
	default:
		return &json.UnmarshalTypeError{Value: string(data), Type: idType}
	}
}

// Key returns the id as IDKey renders it.
func (id ID) Key() string { return string(id) }

var idType = reflect.TypeOf(ID(""))

// Transaction is a real-estate deal being tracked.
type Transaction struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`
	PriorityID  ID     `json:"priority_id,omitempty"`
	DateListing string `json:"date_listing,omitempty"`
	DateClosing string `json:"date_closing,omitempty"`
}

// Building is a property that can be linked to any number of transactions.
type Building struct {
	ID                    ID     `json:"id"`
	AddressStreet         string `json:"address_street"`
	AddressCityID         any    `json:"address_city_id,omitempty"`
	AddressStateID        any    `json:"address_state_id,omitempty"`
	AddressNeighborhoodID any    `json:"address_neighborhood_id,omitempty"`
	AddressZip            string `json:"address_zip,omitempty"`
	SquareFeet            *int64 `json:"square_feet,omitempty"`
	YearBuilt             *int64 `json:"year_built,omitempty"`
	Description           string `json:"description,omitempty"`
	Notes                 string `json:"notes,omitempty"`
}

// Participant is a party to a transaction (buyer, broker, attorney...).
type Participant struct {
	ID          ID     `json:"id"`
	Participant string `json:"participant"`
	Notes       string `json:"notes,omitempty"`
}

// Priority ranks transactions; lower Order comes first.
type Priority struct {
	ID    ID     `json:"id"`
	Name  string `json:"name,omitempty"`
	Order *int64 `json:"order,omitempty"`
}

// Link joins a transaction and a building. The pair is its identity for deletion.
type Link struct {
	ID            ID `json:"id,omitempty"`
	TransactionID ID `json:"transaction_id"`
	BuildingID    ID `json:"building_id"`
}

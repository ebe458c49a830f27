package realty

import (
	"context"
	"sync"

	"github.com/celerix-dev/realtrack/pkg/collection"
	"github.com/celerix-dev/realtrack/pkg/schema"
	"github.com/celerix-dev/realtrack/pkg/sdk"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Participants is the store for participants, sorted alphabetically by name.
type Participants struct {
	*collection.Store
}

func NewParticipants(client sdk.ResourceClient, deps ...collection.Option) *Participants {
	return &Participants{
		Store: collection.New(client, schema.ResourceParticipants, collection.Options{
			Sort:         collection.SortWith(ByParticipantName(language.Und)),
			SearchFields: []string{"participant", "notes", "id"},
			DisplayField: "participant",
		}, deps...),
	}
}

// AddNewParticipant creates a participant named name and appends it.
func (p *Participants) AddNewParticipant(ctx context.Context, name string) (schema.Record, error) {
	created, err := p.Client().Create(ctx, p.Resource(), schema.Record{"participant": name})
	if err != nil {
		p.Logger().Errorf("Failed to add participant: %v", err)
		apiErr := sdk.Classify(err)
		p.Notify(collection.Notification{
			Severity: collection.Negative,
			Message:  "Failed to add participant: " + apiErr.Message,
			Detail:   "Error type: " + string(apiErr.Kind),
		})
		return nil, err
	}
	p.Append(created)
	return created, nil
}

// ByParticipantName returns a comparator ordering records by their
// "participant" field, ignoring case, using the collation rules of tag.
func ByParticipantName(tag language.Tag) collection.Comparator {
	var mu sync.Mutex
	c := collate.New(tag, collate.IgnoreCase)
	return func(a, b schema.Record, _ collection.Additional) int {
		mu.Lock()
		defer mu.Unlock()
		return c.CompareString(a.String("participant"), b.String("participant"))
	}
}

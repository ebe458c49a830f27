package realty

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/celerix-dev/realtrack/pkg/collection"
	"github.com/celerix-dev/realtrack/pkg/schema"
	"github.com/celerix-dev/realtrack/pkg/sdk"
	"golang.org/x/sync/errgroup"
)

// LinkState is where a Links manager is in refreshing its linked buildings.
type LinkState int

const (
	Idle LinkState = iota
	Loading
	Loaded
	Error
)

func (s LinkState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("LinkState(%d)", int(s))
	}
}

// Links manages the buildings linked to one bound transaction.
//
// Every refresh takes a new generation number; a response that arrives after a
// newer refresh (or a new binding) started is discarded, so the linked
// buildings always belong to the bound transaction.
type Links struct {
	client sdk.API
	deps   collection.Deps

	// OnLoaded, if set, receives the linked buildings after each refresh that
	// was applied.
	OnLoaded func(buildings []schema.Record)

	mu        sync.Mutex
	tx        schema.Record
	buildings []schema.Record
	state     LinkState
	lastErr   error
	gen       uint64
	linking   bool
}

// NewLinks creates a manager with no transaction bound. deps supply the
// notifier, confirmer and logger.
func NewLinks(client sdk.API, deps ...collection.Option) *Links {
	return &Links{
		client:    client,
		deps:      collection.ResolveDeps(deps...),
		buildings: []schema.Record{},
	}
}

// Bind sets the transaction whose buildings are tracked and refreshes them. A
// nil transaction clears the linked buildings without touching the network.
func (l *Links) Bind(ctx context.Context, tx schema.Record) error {
	l.mu.Lock()
	l.tx = tx.Clone()
	l.mu.Unlock()

	if tx == nil || tx.IDKey() == "" {
		l.clear()
		return nil
	}
	_, err := l.FetchLinkedBuildings(ctx, tx.ID())
	return err
}

// Transaction returns the bound transaction, or nil.
func (l *Links) Transaction() schema.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tx.Clone()
}

// Refresh reloads the buildings of the bound transaction.
func (l *Links) Refresh(ctx context.Context) error {
	tx := l.Transaction()
	if tx == nil {
		l.clear()
		return nil
	}
	_, err := l.FetchLinkedBuildings(ctx, tx.ID())
	return err
}

// FetchLinkedBuildings loads the links of transactionID, then each linked
// building in parallel. On failure the linked buildings are reset to empty and
// the user is notified. A result superseded by a newer refresh is returned to
// the caller but not applied.
func (l *Links) FetchLinkedBuildings(ctx context.Context, transactionID any) ([]schema.Record, error) {
	key := schema.IDKey(transactionID)
	if key == "" {
		l.clear()
		return []schema.Record{}, nil
	}

	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.state = Loading
	l.mu.Unlock()

	buildings, err := l.load(ctx, key)

	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		l.deps.Logger.Debugf("discarding linked buildings of transaction %s: superseded", key)
		return buildings, err
	}
	if err != nil {
		l.buildings = []schema.Record{}
		l.state = Error
		l.lastErr = err
		l.mu.Unlock()

		apiErr := sdk.Classify(err)
		l.deps.Logger.Errorf("Failed to fetch linked buildings of transaction %s: %v", key, err)
		l.deps.Notifier.Notify(collection.Notification{
			Severity: collection.Negative,
			Message:  "Failed to fetch linked buildings: " + apiErr.Message,
		})
		return nil, err
	}
	l.buildings = buildings
	l.state = Loaded
	l.lastErr = nil
	onLoaded := l.OnLoaded
	l.mu.Unlock()

	if onLoaded != nil {
		onLoaded(schema.CloneAll(buildings))
	}
	return schema.CloneAll(buildings), nil
}

func (l *Links) load(ctx context.Context, txKey string) ([]schema.Record, error) {
	links, err := l.client.Query(ctx, sdk.LinkEndpoint, url.Values{"transaction_id": {txKey}})
	if err != nil {
		return nil, err
	}

	buildings := make([]schema.Record, len(links))
	g, gctx := errgroup.WithContext(ctx)
	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			b, err := l.client.GetByID(gctx, schema.ResourceBuildings, link["building_id"])
			buildings[i] = b
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return buildings, nil
}

// LinkBuilding links buildingID to the bound transaction and refreshes. It
// reports whether the link was created.
func (l *Links) LinkBuilding(ctx context.Context, buildingID any) bool {
	tx := l.Transaction()
	if tx == nil || schema.IDKey(buildingID) == "" {
		l.deps.Notifier.Notify(collection.Notification{
			Severity: collection.Warning,
			Message:  "Please select both a transaction and a building",
		})
		return false
	}

	l.setLinking(true)
	defer l.setLinking(false)

	l.deps.Logger.Debugf("Linking building %s to transaction %s", schema.IDKey(buildingID), tx.IDKey())
	_, err := l.client.CreateLink(ctx, sdk.LinkEndpoint, tx.ID(), buildingID, "transaction_id", "building_id")
	if err != nil {
		l.deps.Logger.Errorf("Link error: %v", err)
		l.deps.Notifier.Notify(collection.Notification{
			Severity: collection.Negative,
			Message:  "Failed to link building: " + sdk.Message(err),
		})
		return false
	}

	_ = l.Refresh(ctx)
	l.deps.Notifier.Notify(collection.Notification{Severity: collection.Positive, Message: "Building linked successfully"})
	return true
}

// UnlinkConfirmation is the question asked before unlinking building.
func UnlinkConfirmation(building schema.Record) collection.Confirmation {
	return collection.Confirmation{
		Title:   "Confirm Unlink",
		Message: fmt.Sprintf("Are you sure you want to unlink %q?", building.String("address_street")),
	}
}

// UnlinkBuilding asks for confirmation, removes the link between the bound
// transaction and building, and refreshes. It reports whether the link was
// removed.
func (l *Links) UnlinkBuilding(ctx context.Context, building schema.Record) bool {
	tx := l.Transaction()
	if tx == nil {
		return false
	}
	if !l.deps.Confirmer.Confirm(ctx, UnlinkConfirmation(building)) {
		return false
	}

	if err := l.client.DeleteLink(ctx, tx.ID(), building.ID()); err != nil {
		l.deps.Logger.Errorf("Unlink error: %v", err)
		l.deps.Notifier.Notify(collection.Notification{
			Severity: collection.Negative,
			Message:  "Failed to unlink building: " + sdk.Message(err),
		})
		return false
	}

	_ = l.Refresh(ctx)
	l.deps.Notifier.Notify(collection.Notification{Severity: collection.Positive, Message: "Building unlinked successfully"})
	return true
}

// LinkedBuildings returns the buildings of the bound transaction.
func (l *Links) LinkedBuildings() []schema.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return schema.CloneAll(l.buildings)
}

func (l *Links) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Loading reports whether a refresh is in flight.
func (l *Links) Loading() bool {
	return l.State() == Loading
}

// Err returns the error of the last applied refresh, if it failed.
func (l *Links) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Linking reports whether LinkBuilding is waiting for the server.
func (l *Links) Linking() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.linking
}

// clear empties the linked buildings; a refresh still in flight is discarded.
func (l *Links) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.buildings = []schema.Record{}
	l.state = Idle
	l.lastErr = nil
}

func (l *Links) setLinking(v bool) {
	l.mu.Lock()
	l.linking = v
	l.mu.Unlock()
}

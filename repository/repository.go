// Package repository owns the working collection of food items for one
// session and mirrors every change into durable storage before returning.
package repository

import (
	"context"
	"sync"

	"calorie-tracker/core"
	"calorie-tracker/durable"
	"calorie-tracker/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Persister is the durable side of the repository.
type Persister interface {
	Persist(ctx context.Context, items []core.FoodItem) bool
	Restore(ctx context.Context) (durable.Restored, durable.Status)
}

type Option func(*Repository)

// WithSeeder sets the provider consulted when no durable record exists.
func WithSeeder(p core.SeedProvider) Option {
	return func(r *Repository) { r.seeder = p }
}

// WithIDGenerator replaces the default ULID generator.
func WithIDGenerator(gen func() string) Option {
	return func(r *Repository) { r.newID = gen }
}

// Repository is safe for concurrent use. Observers registered with Subscribe
// run after the lock is released, in registration order.
type Repository struct {
	store  Persister
	seeder core.SeedProvider
	newID  func() string

	mu      sync.Mutex
	items   []core.FoodItem
	durable bool
	// seeded is set once the bootstrap fallback has run in this session.
	seeded bool

	obsMu     sync.Mutex
	observers map[int]func(core.Change)
	nextObs   int
}

func New(store Persister, opts ...Option) *Repository {
	r := &Repository{
		store:     store,
		newID:     func() string { return ulid.Make().String() },
		durable:   true,
		observers: make(map[int]func(core.Change)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load refreshes the working collection from durable storage and returns a
// copy of it. A missing record is bootstrapped from the seeder and persisted
// at once, at most once per Repository; a record still missing after that
// gets the working collection written back; a corrupt record yields an empty collection; an unreadable medium
// leaves the current working collection in place.
func (r *Repository) Load(ctx context.Context) []core.FoodItem {
	r.mu.Lock()

	restored, status := r.store.Restore(ctx)
	log := logrus.WithField("status", status)

	switch status {
	case durable.StatusFound:
		items, assigned := r.assignIDs(restored.Items)
		r.items = items
		if restored.Repaired || assigned {
			log.Info("Saved food list repaired")
			r.durable = r.store.Persist(ctx, r.items)
		}
	case durable.StatusAbsent:
		if r.seeded {
			log.WithField("items", len(r.items)).Warn("Saved food list missing, writing working collection back")
		} else {
			r.items = r.bootstrap(ctx)
			r.seeded = true
		}
		r.durable = r.store.Persist(ctx, r.items)
	case durable.StatusCorrupt:
		log.Warn("Saved food list unreadable, starting empty")
		r.items = []core.FoodItem{}
	case durable.StatusUnavailable:
		log.Warn("Durable storage unavailable, keeping working collection")
	}

	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	metrics.SetCollectionSize(len(snapshot))
	r.notify(core.Change{Op: core.OpReloaded})
	return snapshot
}

func (r *Repository) bootstrap(ctx context.Context) []core.FoodItem {
	items := []core.FoodItem{}
	if r.seeder == nil {
		return items
	}

	seeds, err := r.seeder.ProvideInitialEntities(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Seed provider failed, starting empty")
		return items
	}
	for _, s := range seeds {
		name, err := core.NormalizeName(s.Name)
		if err != nil {
			continue
		}
		items = append(items, core.FoodItem{
			ID:       r.newID(),
			Name:     name,
			Calories: core.ClampCalories(float64(s.Calories)),
		})
	}
	logrus.WithField("items", len(items)).Info("Food list seeded")
	return items
}

// assignIDs gives a fresh id to every item without one.
func (r *Repository) assignIDs(items []core.FoodItem) ([]core.FoodItem, bool) {
	assigned := false
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = r.newID()
			assigned = true
		}
	}
	if items == nil {
		items = []core.FoodItem{}
	}
	return items, assigned
}

// Add validates and appends a new item, then persists. calories is raw user
// input coerced by core.CoerceCalories.
func (r *Repository) Add(ctx context.Context, name, calories string) (core.FoodItem, error) {
	cleanName, err := core.NormalizeName(name)
	if err != nil {
		return core.FoodItem{}, err
	}

	r.mu.Lock()
	item := core.FoodItem{
		ID:       r.newID(),
		Name:     cleanName,
		Calories: core.CoerceCalories(calories),
	}
	r.items = append(r.items, item)
	r.durable = r.store.Persist(ctx, r.items)
	size := len(r.items)
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"food_id":  item.ID,
		"calories": item.Calories,
	}).Info("Food item added")
	r.record(core.OpAdded, size)
	r.notify(core.Change{Op: core.OpAdded, Item: item})
	return item, nil
}

// Update replaces name and calories of the item with id in place.
func (r *Repository) Update(ctx context.Context, id, name, calories string) (core.Change, error) {
	r.mu.Lock()
	idx := r.indexLocked(id)
	if idx == -1 {
		r.mu.Unlock()
		logrus.WithField("food_id", id).Warn("Food item not found for update")
		return core.Change{}, &core.NotFoundError{ID: id}
	}

	cleanName, err := core.NormalizeName(name)
	if err != nil {
		r.mu.Unlock()
		return core.Change{}, err
	}

	previous := r.items[idx]
	r.items[idx].Name = cleanName
	r.items[idx].Calories = core.CoerceCalories(calories)
	updated := r.items[idx]
	r.durable = r.store.Persist(ctx, r.items)
	size := len(r.items)
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"food_id":       id,
		"previous_name": previous.Name,
	}).Info("Food item updated")
	change := core.Change{Op: core.OpUpdated, Item: updated, Previous: &previous}
	r.record(core.OpUpdated, size)
	r.notify(change)
	return change, nil
}

// Remove deletes the item with id, keeping the order of the others.
func (r *Repository) Remove(ctx context.Context, id string) (core.FoodItem, error) {
	r.mu.Lock()
	idx := r.indexLocked(id)
	if idx == -1 {
		r.mu.Unlock()
		logrus.WithField("food_id", id).Warn("Unable to remove food item")
		return core.FoodItem{}, &core.NotFoundError{ID: id}
	}

	removed := r.items[idx]
	r.items = append(r.items[:idx:idx], r.items[idx+1:]...)
	r.durable = r.store.Persist(ctx, r.items)
	size := len(r.items)
	r.mu.Unlock()

	logrus.WithField("food_id", id).Info("Food item removed")
	r.record(core.OpRemoved, size)
	r.notify(core.Change{Op: core.OpRemoved, Item: removed})
	return removed, nil
}

// Get returns the item with id.
func (r *Repository) Get(id string) (core.FoodItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexLocked(id)
	if idx == -1 {
		return core.FoodItem{}, false
	}
	return r.items[idx], true
}

// Snapshot returns a copy of the collection in insertion order.
func (r *Repository) Snapshot() []core.FoodItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Durable reports whether the most recent write reached durable storage.
func (r *Repository) Durable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.durable
}

// Subscribe registers fn for every completed change and returns a function
// that removes it.
func (r *Repository) Subscribe(fn func(core.Change)) func() {
	r.obsMu.Lock()
	id := r.nextObs
	r.nextObs++
	r.observers[id] = fn
	r.obsMu.Unlock()

	return func() {
		r.obsMu.Lock()
		delete(r.observers, id)
		r.obsMu.Unlock()
	}
}

func (r *Repository) notify(c core.Change) {
	r.obsMu.Lock()
	fns := make([]func(core.Change), 0, len(r.observers))
	for i := 0; i < r.nextObs; i++ {
		if fn, ok := r.observers[i]; ok {
			fns = append(fns, fn)
		}
	}
	r.obsMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (r *Repository) record(op core.Op, size int) {
	metrics.RecordMutation(string(op))
	metrics.SetCollectionSize(size)
}

func (r *Repository) indexLocked(id string) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Repository) snapshotLocked() []core.FoodItem {
	out := make([]core.FoodItem, len(r.items))
	copy(out, r.items)
	return out
}

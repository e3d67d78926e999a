package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"calorie-tracker/core"
	"calorie-tracker/durable"
	"calorie-tracker/seed"
	"calorie-tracker/stores/memory"
)

const testKey = "CalorieTracker.s1"

type countingSeeder struct {
	seeds []core.Seed
	calls int
}

func (s *countingSeeder) ProvideInitialEntities(ctx context.Context) ([]core.Seed, error) {
	s.calls++
	return s.seeds, nil
}

type failingSeeder struct{}

func (failingSeeder) ProvideInitialEntities(ctx context.Context) ([]core.Seed, error) {
	return nil, errors.New("markup unavailable")
}

// switchableMedium wraps a medium whose reads and writes can be made to fail.
type switchableMedium struct {
	core.Medium
	failGet bool
	failPut bool
}

func (m *switchableMedium) Get(ctx context.Context, key string) ([]byte, error) {
	if m.failGet {
		return nil, errors.New("medium offline")
	}
	return m.Medium.Get(ctx, key)
}

func (m *switchableMedium) Put(ctx context.Context, key string, value []byte) error {
	if m.failPut {
		return core.ErrQuotaExceeded
	}
	return m.Medium.Put(ctx, key, value)
}

func setupRepo(t *testing.T, opts ...Option) (*Repository, *durable.Adapter, core.Medium) {
	t.Helper()
	medium := memory.NewStore()
	adapter := durable.NewAdapter(medium, testKey)
	repo := New(adapter, opts...)
	repo.Load(context.Background())
	return repo, adapter, medium
}

func TestAdd_Success(t *testing.T) {
	repo, adapter, _ := setupRepo(t)
	ctx := context.Background()

	item, err := repo.Add(ctx, "  Oats ", "150")
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if item.ID == "" {
		t.Error("Add() returned empty ID")
	}
	if len(item.ID) != 26 {
		t.Errorf("Add() returned invalid ULID length: got %d, want 26", len(item.ID))
	}
	if item.Name != "Oats" || item.Calories != 150 {
		t.Errorf("Add() item mismatch: %+v", item)
	}

	restored, status := adapter.Restore(ctx)
	if status != durable.StatusFound || len(restored.Items) != 1 || restored.Items[0] != item {
		t.Errorf("Add() did not persist: %s %+v", status, restored.Items)
	}
}

func TestAdd_EmptyNameRejected(t *testing.T) {
	repo, _, _ := setupRepo(t)

	for _, name := range []string{"", "   "} {
		_, err := repo.Add(context.Background(), name, "100")
		if !errors.Is(err, core.ErrValidation) {
			t.Errorf("Add(%q) should fail with ErrValidation, got %v", name, err)
		}
	}
	if repo.Len() != 0 {
		t.Errorf("collection should be unchanged, got %d items", repo.Len())
	}
}

func TestAdd_CoercesCalories(t *testing.T) {
	repo, _, _ := setupRepo(t)
	ctx := context.Background()

	apple, err := repo.Add(ctx, "Apple", "-5")
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if apple.Calories != 0 {
		t.Errorf("negative calories should coerce to 0, got %d", apple.Calories)
	}

	banana, err := repo.Add(ctx, "Banana", "abc")
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if banana.Calories != 0 {
		t.Errorf("non-numeric calories should coerce to 0, got %d", banana.Calories)
	}
}

func TestUpdate_Success(t *testing.T) {
	repo, adapter, _ := setupRepo(t)
	ctx := context.Background()

	item, _ := repo.Add(ctx, "Oats", "150")
	change, err := repo.Update(ctx, item.ID, "Oatmeal", "160")
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if change.Previous == nil || change.Previous.Name != "Oats" {
		t.Errorf("Update() should report previous name, got %+v", change.Previous)
	}
	if change.Item.ID != item.ID || change.Item.Name != "Oatmeal" || change.Item.Calories != 160 {
		t.Errorf("Update() item mismatch: %+v", change.Item)
	}

	restored, _ := adapter.Restore(ctx)
	if restored.Items[0].Name != "Oatmeal" {
		t.Errorf("Update() did not persist: %+v", restored.Items)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo, _, _ := setupRepo(t)
	ctx := context.Background()
	repo.Add(ctx, "Oats", "150")
	before := repo.Snapshot()

	_, err := repo.Update(ctx, "unknown", "X", "1")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Update() should fail with ErrNotFound, got %v", err)
	}
	var nf *core.NotFoundError
	if !errors.As(err, &nf) || nf.ID != "unknown" {
		t.Errorf("Update() should report the missing id, got %v", err)
	}
	if after := repo.Snapshot(); len(after) != len(before) || after[0] != before[0] {
		t.Errorf("collection changed: %+v", after)
	}
}

func TestUpdate_EmptyNameRejected(t *testing.T) {
	repo, _, _ := setupRepo(t)
	ctx := context.Background()
	item, _ := repo.Add(ctx, "Oats", "150")

	_, err := repo.Update(ctx, item.ID, " ", "200")
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("Update() should fail with ErrValidation, got %v", err)
	}
	got, _ := repo.Get(item.ID)
	if got != item {
		t.Errorf("item changed after rejected update: %+v", got)
	}
}

func TestRemove(t *testing.T) {
	repo, adapter, _ := setupRepo(t)
	ctx := context.Background()

	a, _ := repo.Add(ctx, "A", "1")
	b, _ := repo.Add(ctx, "B", "2")
	c, _ := repo.Add(ctx, "C", "3")

	removed, err := repo.Remove(ctx, b.ID)
	if err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if removed != b {
		t.Errorf("Remove() returned %+v, want %+v", removed, b)
	}

	snapshot := repo.Snapshot()
	if len(snapshot) != 2 || snapshot[0] != a || snapshot[1] != c {
		t.Errorf("survivors reordered or missing: %+v", snapshot)
	}

	restored, _ := adapter.Restore(ctx)
	if len(restored.Items) != 2 {
		t.Errorf("Remove() did not persist: %+v", restored.Items)
	}

	if _, err := repo.Remove(ctx, b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Remove() should fail with ErrNotFound, got %v", err)
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	repo, _, _ := setupRepo(t)
	item, _ := repo.Add(context.Background(), "Oats", "150")

	snapshot := repo.Snapshot()
	snapshot[0].Name = "mutated"

	got, _ := repo.Get(item.ID)
	if got.Name != "Oats" {
		t.Error("mutating a snapshot changed the repository")
	}
}

func TestRandomSequences_UniqueIDs(t *testing.T) {
	repo, _, _ := setupRepo(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	assigned := make(map[string]bool)
	for i := 0; i < 500; i++ {
		snapshot := repo.Snapshot()
		switch op := rng.Intn(3); {
		case op == 0 || len(snapshot) == 0:
			item, err := repo.Add(ctx, fmt.Sprintf("item-%d", i), fmt.Sprint(rng.Intn(500)))
			if err != nil {
				t.Fatalf("Add() failed: %v", err)
			}
			if assigned[item.ID] {
				t.Fatalf("id %s assigned twice", item.ID)
			}
			assigned[item.ID] = true
		case op == 1:
			target := snapshot[rng.Intn(len(snapshot))]
			change, err := repo.Update(ctx, target.ID, "renamed", "1")
			if err != nil || change.Item.ID != target.ID {
				t.Fatalf("Update() changed identity or failed: %+v %v", change, err)
			}
		default:
			target := snapshot[rng.Intn(len(snapshot))]
			if _, err := repo.Remove(ctx, target.ID); err != nil {
				t.Fatalf("Remove() failed: %v", err)
			}
		}
	}

	seen := make(map[string]bool)
	for _, item := range repo.Snapshot() {
		if seen[item.ID] {
			t.Errorf("duplicate id in final collection: %s", item.ID)
		}
		if !assigned[item.ID] {
			t.Errorf("id %s was not assigned by Add", item.ID)
		}
		seen[item.ID] = true
	}
}

func TestLoad_ReflectsDurableState(t *testing.T) {
	medium := memory.NewStore()
	ctx := context.Background()

	first := New(durable.NewAdapter(medium, testKey))
	first.Load(ctx)
	first.Add(ctx, "Oats", "150")

	second := New(durable.NewAdapter(medium, testKey))
	items := second.Load(ctx)
	if len(items) != 1 || items[0].Name != "Oats" {
		t.Fatalf("second session did not see durable state: %+v", items)
	}

	first.Add(ctx, "Eggs", "70")
	items = second.Load(ctx)
	if len(items) != 2 {
		t.Errorf("Load() should refresh from durable storage, got %+v", items)
	}
	if again := second.Load(ctx); len(again) != 2 {
		t.Errorf("Load() should be idempotent, got %+v", again)
	}
}

func TestLoad_BootstrapsOnce(t *testing.T) {
	seeder := &countingSeeder{seeds: []core.Seed{
		{Name: "Apple", Calories: 95},
		{Name: "  ", Calories: 5},
		{Name: "Broth", Calories: -3},
	}}
	repo, adapter, _ := setupRepo(t, WithSeeder(seeder))
	ctx := context.Background()

	items := repo.Snapshot()
	if len(items) != 2 {
		t.Fatalf("expected 2 seeded items, got %+v", items)
	}
	if items[0].ID == "" || items[1].ID == "" || items[0].ID == items[1].ID {
		t.Errorf("seeded items need fresh unique ids: %+v", items)
	}
	if items[1].Calories != 0 {
		t.Errorf("negative seed calories should clamp to 0, got %d", items[1].Calories)
	}

	if _, status := adapter.Restore(ctx); status != durable.StatusFound {
		t.Errorf("seeded collection should be persisted immediately, status %s", status)
	}

	repo.Load(ctx)
	if seeder.calls != 1 {
		t.Errorf("seeder consulted %d times, want 1", seeder.calls)
	}
}

func TestLoad_EmptySeedStillPersisted(t *testing.T) {
	seeder := &countingSeeder{}
	repo, _, _ := setupRepo(t, WithSeeder(seeder))

	repo.Load(context.Background())
	if seeder.calls != 1 {
		t.Errorf("empty seed should be persisted so the seeder runs once, got %d calls", seeder.calls)
	}
}

func TestLoad_SeederFailure(t *testing.T) {
	repo, _, _ := setupRepo(t, WithSeeder(failingSeeder{}))
	if repo.Len() != 0 {
		t.Errorf("failed seeder should leave an empty collection, got %d", repo.Len())
	}
}

func TestLoad_FailedBootstrapPersistDoesNotReseed(t *testing.T) {
	ctx := context.Background()
	medium := memory.NewStoreWithQuota(1)
	repo := New(durable.NewAdapter(medium, testKey), WithSeeder(seed.Static{{Name: "Seeded", Calories: 1}}))

	repo.Load(ctx)
	if repo.Durable() {
		t.Fatal("expected bootstrap persist to fail against a 1 byte quota")
	}
	seeded := repo.Snapshot()
	oats, err := repo.Add(ctx, "Oats", "150")
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	items := repo.Load(ctx)
	if len(items) != 2 {
		t.Fatalf("reload lost the working collection: %+v", items)
	}
	if items[0] != seeded[0] || items[1] != oats {
		t.Errorf("reload replaced items: got %+v, want [%+v %+v]", items, seeded[0], oats)
	}
}

func TestLoad_MissingRecordWrittenBack(t *testing.T) {
	ctx := context.Background()
	repo, adapter, _ := setupRepo(t, WithSeeder(seed.Static{{Name: "Seeded", Calories: 1}}))
	item, _ := repo.Add(ctx, "Oats", "150")

	if err := adapter.Clear(ctx); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	items := repo.Load(ctx)
	if len(items) != 2 || items[1] != item {
		t.Fatalf("unexpected items after record vanished: %+v", items)
	}
	restored, status := adapter.Restore(ctx)
	if status != durable.StatusFound || len(restored.Items) != 2 {
		t.Errorf("working collection not written back: %s %+v", status, restored.Items)
	}
}

func TestLoad_MarkupSeeder(t *testing.T) {
	markup := &seed.Markup{HTML: []byte(`<ul id="food-list"><li>Toast - 120 calories</li></ul>`), ListID: "food-list"}
	repo, _, _ := setupRepo(t, WithSeeder(markup))

	items := repo.Snapshot()
	if len(items) != 1 || items[0].Name != "Toast" || items[0].Calories != 120 {
		t.Errorf("markup seed mismatch: %+v", items)
	}
}

func TestLoad_CorruptPayload(t *testing.T) {
	medium := memory.NewStore()
	ctx := context.Background()
	_ = medium.Put(ctx, testKey, []byte("{broken"))

	seeder := &countingSeeder{seeds: []core.Seed{{Name: "Apple"}}}
	repo := New(durable.NewAdapter(medium, testKey), WithSeeder(seeder))
	items := repo.Load(ctx)

	if len(items) != 0 {
		t.Errorf("corrupt payload should load empty, got %+v", items)
	}
	if seeder.calls != 0 {
		t.Error("corrupt payload should not trigger the bootstrap seeder")
	}
}

func TestLoad_UnavailableKeepsWorkingSet(t *testing.T) {
	medium := &switchableMedium{Medium: memory.NewStore()}
	ctx := context.Background()
	repo := New(durable.NewAdapter(medium, testKey))
	repo.Load(ctx)
	repo.Add(ctx, "Oats", "150")

	medium.failGet = true
	items := repo.Load(ctx)
	if len(items) != 1 {
		t.Errorf("unreadable medium should keep the working set, got %+v", items)
	}
}

func TestLoad_RepairsStoredRecords(t *testing.T) {
	medium := memory.NewStore()
	ctx := context.Background()
	_ = medium.Put(ctx, testKey, []byte(`[{"name":"Oats","calories":"150"},{"id":"x","name":"Eggs","calories":70}]`))

	repo := New(durable.NewAdapter(medium, testKey))
	items := repo.Load(ctx)
	if len(items) != 2 || items[0].ID == "" || items[0].Calories != 150 || items[1].ID != "x" {
		t.Fatalf("repair mismatch: %+v", items)
	}

	// The repaired form is written back, so a second session sees the same ids.
	other := New(durable.NewAdapter(medium, testKey))
	again := other.Load(ctx)
	if again[0].ID != items[0].ID {
		t.Errorf("assigned id not persisted: %s vs %s", again[0].ID, items[0].ID)
	}
}

func TestPersistFailure_DoesNotBlockMutation(t *testing.T) {
	medium := &switchableMedium{Medium: memory.NewStore()}
	ctx := context.Background()
	repo := New(durable.NewAdapter(medium, testKey))
	repo.Load(ctx)

	medium.failPut = true
	item, err := repo.Add(ctx, "Oats", "150")
	if err != nil {
		t.Fatalf("Add() should succeed despite medium failure, got %v", err)
	}
	if repo.Durable() {
		t.Error("Durable() should report the failed write")
	}
	if _, ok := repo.Get(item.ID); !ok {
		t.Error("in-memory collection should keep the item")
	}

	medium.failPut = false
	repo.Add(ctx, "Eggs", "70")
	if !repo.Durable() {
		t.Error("Durable() should recover after a successful write")
	}
}

func TestSubscribe(t *testing.T) {
	repo, _, _ := setupRepo(t)
	ctx := context.Background()

	var ops []core.Op
	cancel := repo.Subscribe(func(c core.Change) { ops = append(ops, c.Op) })

	item, _ := repo.Add(ctx, "Oats", "150")
	repo.Update(ctx, item.ID, "Oatmeal", "160")
	repo.Remove(ctx, item.ID)
	repo.Add(ctx, "", "1")
	repo.Load(ctx)

	want := []core.Op{core.OpAdded, core.OpUpdated, core.OpRemoved, core.OpReloaded}
	if fmt.Sprint(ops) != fmt.Sprint(want) {
		t.Errorf("observed %v, want %v", ops, want)
	}

	cancel()
	repo.Add(ctx, "Eggs", "70")
	if len(ops) != len(want) {
		t.Error("cancelled observer still called")
	}
}

func TestSubscribe_ObserverMayCallRepository(t *testing.T) {
	repo, _, _ := setupRepo(t)
	ctx := context.Background()

	var seen int
	repo.Subscribe(func(c core.Change) { seen = repo.Len() })

	repo.Add(ctx, "Oats", "150")
	if seen != 1 {
		t.Errorf("observer should run after the lock is released, saw %d", seen)
	}
}

func TestWithIDGenerator(t *testing.T) {
	n := 0
	repo, _, _ := setupRepo(t, WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}))

	item, _ := repo.Add(context.Background(), "Oats", "150")
	if item.ID != "id-1" {
		t.Errorf("custom generator not used: %s", item.ID)
	}
}

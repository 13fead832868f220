package calendar_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"calstore/src-server/calendar"
	"calstore/src-server/model"
	"calstore/src-server/store"
)

func newTestManager(t *testing.T) (*calendar.Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.json")
	manager := calendar.NewManager(store.NewFileStore(path), calendar.NewAllocator(), 5*time.Second)
	return manager, path
}

func TestInsertAssignsID(t *testing.T) {
	manager, _ := newTestManager(t)

	inserted, err := manager.Insert(model.Event{Title: "X", Date: "2025-01-01"})
	if err != nil {
		t.Fatal(err)
	}
	if inserted.ID == "" {
		t.Error("insert should assign an id")
	}

	collection, err := manager.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	// two seed events plus the new one
	if len(collection.Events) != 3 {
		t.Error("expected 3 events, got", len(collection.Events))
	}
	if collection.Events[2].ID != inserted.ID {
		t.Error("insert should append, preserving order")
	}
}

func TestInsertKeepsCallerID(t *testing.T) {
	manager, _ := newTestManager(t)

	inserted, err := manager.Insert(model.Event{ID: "mine", Title: "X"})
	if err != nil {
		t.Fatal(err)
	}
	if inserted.ID != "mine" {
		t.Error("caller-supplied id should be kept, got", inserted.ID)
	}

	// a second insert with the same id violates uniqueness
	if _, err := manager.Insert(model.Event{ID: "mine"}); !errors.Is(err, calendar.ErrInvalidInput) {
		t.Error("duplicate id should be rejected, got", err)
	}
}

func TestConcurrentInsertsBothSurvive(t *testing.T) {
	manager, _ := newTestManager(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"left", "right"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = manager.Insert(model.Event{ID: id, Title: id})
		}(i, id)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	collection, err := manager.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if collection.FindIndex("left") < 0 || collection.FindIndex("right") < 0 {
		t.Error("an insert was lost:", collection.Events)
	}
}

func TestUpdateMergesPartial(t *testing.T) {
	manager, _ := newTestManager(t)
	if _, err := manager.Insert(model.Event{
		ID:    "e1",
		Title: "Old",
		Date:  "2025-01-01",
		Extra: map[string]any{"room": "B12"},
	}); err != nil {
		t.Fatal(err)
	}

	merged, err := manager.Update("e1", map[string]any{"title": "New", "notes": "slides"})
	if err != nil {
		t.Fatal(err)
	}
	if merged.Title != "New" {
		t.Error("field in partial should override, got", merged.Title)
	}
	if merged.Date != "2025-01-01" || merged.Extra["room"] != "B12" {
		t.Error("fields absent from partial should be retained:", merged)
	}
	if merged.Extra["notes"] != "slides" {
		t.Error("new extra field should be merged in:", merged.Extra)
	}
}

func TestUpdateNotFoundLeavesDocumentUntouched(t *testing.T) {
	manager, path := newTestManager(t)
	if _, err := manager.ListAll(); err != nil { // force the seed to commit
		t.Fatal(err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := manager.Update("ghost", map[string]any{"title": "boo"}); !errors.Is(err, calendar.ErrNotFound) {
		t.Fatal("expected ErrNotFound, got", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("failed update must not touch the persisted document")
	}
}

func TestDeleteByID(t *testing.T) {
	manager, _ := newTestManager(t)
	if _, err := manager.Insert(model.Event{ID: "e1", Title: "bye"}); err != nil {
		t.Fatal(err)
	}

	removed, err := manager.DeleteByID("e1")
	if err != nil {
		t.Fatal(err)
	}
	if removed.Title != "bye" {
		t.Error("delete should return the removed event, got", removed)
	}

	if _, err := manager.DeleteByID("e1"); !errors.Is(err, calendar.ErrNotFound) {
		t.Error("second delete should be NotFound, got", err)
	}
}

func TestDeleteByGroup(t *testing.T) {
	manager, _ := newTestManager(t)
	for _, event := range []model.Event{
		{ID: "a", RecurringGroup: "g1"},
		{ID: "b", RecurringGroup: "g2"},
		{ID: "c", RecurringGroup: "g1"},
		{ID: "d"},
	} {
		if _, err := manager.Insert(event); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := manager.DeleteByGroup("g1")
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Error("expected 2 removed, got", removed)
	}

	collection, err := manager.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if collection.FindIndex("b") < 0 || collection.FindIndex("d") < 0 {
		t.Error("events outside the group must survive:", collection.Events)
	}
	if collection.FindIndex("a") >= 0 || collection.FindIndex("c") >= 0 {
		t.Error("group members must be gone:", collection.Events)
	}

	// a group nobody carries is a success with count zero
	removed, err = manager.DeleteByGroup("nope")
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Error("expected 0 removed, got", removed)
	}
}

func TestBulkInsertAllocatesMissingIDs(t *testing.T) {
	manager, _ := newTestManager(t)

	added, ids, err := manager.BulkInsert([]model.Event{
		{Title: "one"},
		{ID: "fixed", Title: "two"},
		{Title: "three"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if added != 3 || len(ids) != 3 {
		t.Fatal("expected 3 added with 3 ids, got", added, ids)
	}
	if ids[1] != "fixed" {
		t.Error("ids should align with insertion order, got", ids)
	}
	seen := make(map[string]bool)
	for _, id := range ids {
		if id == "" || seen[id] {
			t.Error("bulk ids must be unique and non-blank:", ids)
		}
		seen[id] = true
	}

	collection, err := manager.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(collection.Events) != 5 { // 2 seeds + 3
		t.Error("expected 5 events, got", len(collection.Events))
	}
}

func TestMutationsBumpLastUpdated(t *testing.T) {
	manager, _ := newTestManager(t)
	first, err := manager.ListAll()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := manager.Insert(model.Event{Title: "x"}); err != nil {
		t.Fatal(err)
	}
	second, err := manager.ListAll()
	if err != nil {
		t.Fatal(err)
	}

	firstTime, err := time.Parse(time.RFC3339Nano, first.LastUpdated)
	if err != nil {
		t.Fatal(err)
	}
	secondTime, err := time.Parse(time.RFC3339Nano, second.LastUpdated)
	if err != nil {
		t.Fatal(err)
	}
	if !secondTime.After(firstTime) {
		t.Error("lastUpdated must move forward on every mutation:", first.LastUpdated, second.LastUpdated)
	}
}

// Holds every save until the test lets go, to pin the writer slot.
type slowStore struct {
	inner   store.Store
	release chan struct{}
	saving  chan struct{}
	once    sync.Once
}

func (s *slowStore) Load() (*model.EventCollection, error) {
	return s.inner.Load()
}

func (s *slowStore) Save(collection *model.EventCollection) error {
	s.once.Do(func() { close(s.saving) })
	<-s.release
	return s.inner.Save(collection)
}

func TestWriterLockTimesOut(t *testing.T) {
	slow := &slowStore{
		inner:   store.NewFileStore(filepath.Join(t.TempDir(), "events.json")),
		release: make(chan struct{}),
		saving:  make(chan struct{}),
	}
	manager := calendar.NewManager(slow, calendar.NewAllocator(), 50*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := manager.Insert(model.Event{ID: "holder"})
		done <- err
	}()
	<-slow.saving // the first insert now owns the writer slot

	if _, err := manager.Insert(model.Event{ID: "waiter"}); !errors.Is(err, store.ErrUnavailable) {
		t.Error("bounded lock wait should fail with a storage error, got", err)
	}

	close(slow.release)
	if err := <-done; err != nil {
		t.Error("the lock holder should still succeed:", err)
	}
}

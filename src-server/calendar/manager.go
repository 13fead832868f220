package calendar

import (
	"fmt"
	"time"

	"calstore/src-server/model"
	"calstore/src-server/store"
)

const DefaultLockTimeout = 5 * time.Second

// Applies one logical mutation per call on top of the store. The document has
// no version field, so every load→apply→save cycle runs under a single writer
// slot; two interleaved cycles would silently drop one caller's change.
type Manager struct {
	store       store.Store
	alloc       *Allocator
	lockTimeout time.Duration
	writer      chan struct{}

	// optional, fed to the metric loop; sends never block
	WriteLatency chan<- float64
}

func NewManager(st store.Store, alloc *Allocator, lockTimeout time.Duration) *Manager {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Manager{
		store:       st,
		alloc:       alloc,
		lockTimeout: lockTimeout,
		writer:      make(chan struct{}, 1),
	}
}

func (m *Manager) acquire() error {
	select {
	case m.writer <- struct{}{}:
		return nil
	case <-time.After(m.lockTimeout):
		return fmt.Errorf("%w: writer lock wait timed out", store.ErrUnavailable)
	}
}

func (m *Manager) release() {
	<-m.writer
}

// One full mutation cycle: take the writer slot, load the snapshot, apply,
// stamp lastUpdated, save. The slot is held until the save is durable or the
// cycle fails, whichever comes first.
func (m *Manager) mutate(apply func(*model.EventCollection) error) error {
	if err := m.acquire(); err != nil {
		return err
	}
	defer m.release()

	collection, err := m.store.Load()
	if err != nil {
		return err
	}
	if err := apply(collection); err != nil {
		return err
	}
	collection.Touch()

	start := time.Now()
	if err := m.store.Save(collection); err != nil {
		return err
	}
	if m.WriteLatency != nil {
		select {
		case m.WriteLatency <- float64(time.Since(start).Microseconds()):
		default:
		}
	}
	return nil
}

func takenIDs(collection *model.EventCollection) map[string]struct{} {
	taken := make(map[string]struct{}, len(collection.Events))
	for i := range collection.Events {
		taken[collection.Events[i].ID] = struct{}{}
	}
	return taken
}

// Append one event, allocating an id if the caller didn't bring one.
func (m *Manager) Insert(event model.Event) (model.Event, error) {
	var inserted model.Event
	err := m.mutate(func(collection *model.EventCollection) error {
		taken := takenIDs(collection)
		if event.ID == "" {
			id, err := m.alloc.Allocate(taken)
			if err != nil {
				return err
			}
			event.ID = id
		} else if _, dup := taken[event.ID]; dup {
			return fmt.Errorf("%w: duplicate event id", ErrInvalidInput)
		}
		collection.Events = append(collection.Events, event)
		inserted = event.Clone()
		return nil
	})
	return inserted, err
}

// Append all events in one cycle; returns how many were added and their ids
// in insertion order.
func (m *Manager) BulkInsert(events []model.Event) (int, []string, error) {
	var ids []string
	err := m.mutate(func(collection *model.EventCollection) error {
		taken := takenIDs(collection)
		batch := make([]model.Event, 0, len(events))
		ids = make([]string, 0, len(events))
		for _, event := range events {
			if event.ID == "" {
				id, err := m.alloc.Allocate(taken)
				if err != nil {
					return err
				}
				event.ID = id
			} else if _, dup := taken[event.ID]; dup {
				return fmt.Errorf("%w: duplicate event id", ErrInvalidInput)
			} else {
				taken[event.ID] = struct{}{}
			}
			batch = append(batch, event)
			ids = append(ids, event.ID)
		}
		collection.Events = append(collection.Events, batch...)
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return len(ids), ids, nil
}

// Shallow-merge partial onto the stored event: fields present in partial
// override, everything else is kept. The id itself can't be reassigned.
func (m *Manager) Update(id string, partial map[string]any) (model.Event, error) {
	var merged model.Event
	err := m.mutate(func(collection *model.EventCollection) error {
		i := collection.FindIndex(id)
		if i < 0 {
			return fmt.Errorf("%w: event %s", ErrNotFound, id)
		}
		collection.Events[i].Merge(partial)
		merged = collection.Events[i].Clone()
		return nil
	})
	return merged, err
}

func (m *Manager) DeleteByID(id string) (model.Event, error) {
	var removed model.Event
	err := m.mutate(func(collection *model.EventCollection) error {
		i := collection.FindIndex(id)
		if i < 0 {
			return fmt.Errorf("%w: event %s", ErrNotFound, id)
		}
		removed = collection.Events[i].Clone()
		collection.Events = append(collection.Events[:i], collection.Events[i+1:]...)
		return nil
	})
	return removed, err
}

// Remove every event carrying the group tag. Matching nothing is not an
// error; the caller gets a count of zero.
func (m *Manager) DeleteByGroup(group string) (int, error) {
	if group == "" {
		return 0, fmt.Errorf("%w: blank group id", ErrInvalidInput)
	}
	removed := 0
	err := m.mutate(func(collection *model.EventCollection) error {
		kept := collection.Events[:0]
		for _, event := range collection.Events {
			if event.RecurringGroup == group {
				removed++
				continue
			}
			kept = append(kept, event)
		}
		collection.Events = kept
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Read the committed document. No writer slot needed; the store's atomic
// rename guarantees the snapshot is never torn.
func (m *Manager) ListAll() (*model.EventCollection, error) {
	return m.store.Load()
}

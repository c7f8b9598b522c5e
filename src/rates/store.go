package rates

import (
	"sync"

	"market-pipeline/src/logger"
	"market-pipeline/src/models"
)

// -----------------------------------------------------------------------------
// Latest-Rate Store & Fan-out
//
// Holds the most recent canonical rate per instrument and notifies every
// registered observer with the complete current snapshot whenever a batch is
// applied. Observers are invoked in registration order; a panicking observer
// is isolated and never prevents delivery to the rest.
// -----------------------------------------------------------------------------

// Observer receives the full current snapshot after every applied batch.
type Observer func(snapshot []models.MCanonicalRate)

type observerEntry struct {
	id int
	fn Observer
}

type Store struct {
	Logger *logger.Logger

	mu        sync.Mutex
	rates     map[string]models.MCanonicalRate
	order     []string // instrument keys in first-seen order
	observers []observerEntry
	nextID    int
}

// -----------------------------------------------------------------------------

func NewStore(log *logger.Logger) *Store {
	return &Store{
		Logger: log,
		rates:  make(map[string]models.MCanonicalRate),
	}
}

// -----------------------------------------------------------------------------

// Apply updates the store with a normalized batch and fans the resulting
// snapshot out to every observer. The batch is applied atomically from the
// observers' perspective: they only ever see post-batch state.
func (s *Store) Apply(batch []models.MCanonicalRate) {
	if len(batch) == 0 {
		return
	}

	s.mu.Lock()
	for _, rate := range batch {
		key := rate.Key()
		if _, exists := s.rates[key]; !exists {
			s.order = append(s.order, key)
		}
		s.rates[key] = rate
	}
	snapshot := s.snapshotLocked()
	observers := make([]observerEntry, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, entry := range observers {
		s.deliver(entry, snapshot)
	}
}

// -----------------------------------------------------------------------------

// Subscribe registers an observer and returns its id for Unsubscribe. If the
// store already holds data the observer is invoked immediately with the
// current snapshot, so no subscriber waits for the next tick to see state.
func (s *Store) Subscribe(fn Observer) int {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	entry := observerEntry{id: id, fn: fn}
	s.observers = append(s.observers, entry)
	var snapshot []models.MCanonicalRate
	if len(s.order) > 0 {
		snapshot = s.snapshotLocked()
	}
	s.mu.Unlock()

	if snapshot != nil {
		s.deliver(entry, snapshot)
	}
	return id
}

// -----------------------------------------------------------------------------

// Unsubscribe removes a previously registered observer.
func (s *Store) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, entry := range s.observers {
		if entry.id == id {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// -----------------------------------------------------------------------------

// Snapshot returns all rates in first-seen instrument order.
func (s *Store) Snapshot() []models.MCanonicalRate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// -----------------------------------------------------------------------------

// Map returns a copy of the current state keyed by rate key, used by the
// normalizer as prior state for defensive coercion.
func (s *Store) Map() map[string]models.MCanonicalRate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]models.MCanonicalRate, len(s.rates))
	for k, v := range s.rates {
		out[k] = v
	}
	return out
}

// -----------------------------------------------------------------------------

// Empty reports whether no rate has been applied yet.
func (s *Store) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order) == 0
}

// -----------------------------------------------------------------------------

func (s *Store) snapshotLocked() []models.MCanonicalRate {
	out := make([]models.MCanonicalRate, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.rates[key])
	}
	return out
}

// -----------------------------------------------------------------------------

// deliver invokes one observer, isolating panics so a broken subscriber
// cannot take down the pipeline or starve the remaining observers.
func (s *Store) deliver(entry observerEntry, snapshot []models.MCanonicalRate) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("Observer %d panicked: %v", entry.id, r)
		}
	}()
	entry.fn(snapshot)
}

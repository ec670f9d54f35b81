package memory

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Operation selects how StoreLongTerm writes into a category.
type Operation string

const (
	OpAppend Operation = "append"
	OpUpdate Operation = "update"
	OpSet    Operation = "set"
)

// Default long-term categories.
const (
	CategoryReliableSources = "reliable_sources"
	CategorySearchPatterns  = "search_patterns"
	CategoryTopicKnowledge  = "topic_knowledge"
	CategoryQualityScores   = "quality_scores"
)

// Store is the shared research memory of one research run. All methods are safe for
// concurrent use; a run owns its store exclusively.
type Store struct {
	mu sync.Mutex

	shortTerm map[string]*model.MemoryEntry
	longTerm  model.Categories
	shared    map[string]*model.SharedEntry

	now       func() time.Time
	createdAt time.Time
}

type Option func(*Store)

// WithClock overrides the time source used for timestamps and uptime.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store with the default long-term categories.
func New(opts ...Option) *Store {
	s := &Store{
		shortTerm: make(map[string]*model.MemoryEntry),
		longTerm: model.Categories{
			CategoryReliableSources: model.ValueList{},
			CategorySearchPatterns:  model.ValueList{},
			CategoryTopicKnowledge:  model.Entries{},
			CategoryQualityScores:   model.Entries{},
		},
		shared: make(map[string]*model.SharedEntry),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.createdAt = s.now()
	return s
}

// StoreShortTerm upserts a short-term value. Metadata is optional.
func (s *Store) StoreShortTerm(key string, value model.MemoryValue, metadata map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if metadata == nil {
		metadata = map[string]string{}
	}
	s.shortTerm[key] = &model.MemoryEntry{
		Value:     value,
		Timestamp: s.now(),
		Metadata:  maps.Clone(metadata),
	}
}

// GetShortTerm returns the value stored under key.
func (s *Store) GetShortTerm(key string) (model.MemoryValue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.shortTerm[key]
	if !ok {
		return nil, false
	}
	return entry.Value, true
}

// GetShortTermEntry returns the stored entry including timestamp and metadata.
func (s *Store) GetShortTermEntry(key string) (model.MemoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.shortTerm[key]
	if !ok {
		return model.MemoryEntry{}, false
	}
	return *entry, true
}

// StoreLongTerm writes data into a long-term category. OpAppend requires a list-typed
// category and OpUpdate a map-typed one; both create the category when it is absent.
// OpSet replaces the category with any value.
func (s *Store) StoreLongTerm(category string, data model.MemoryValue, op Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.longTerm[category]

	switch op {
	case OpAppend:
		if !exists {
			current = model.ValueList{}
		}
		list, ok := current.(model.ValueList)
		if !ok {
			return goerr.Wrap(model.ErrInvalidOperation, "append requires a list-typed category",
				goerr.V("category", category),
				goerr.V("kind", kindOf(current)))
		}
		s.longTerm[category] = append(list, data)

	case OpUpdate:
		update, ok := data.(model.Entries)
		if !ok {
			return goerr.Wrap(model.ErrInvalidOperation, "update requires map-typed data",
				goerr.V("category", category))
		}
		if !exists {
			current = model.Entries{}
		}
		entries, ok := current.(model.Entries)
		if !ok {
			return goerr.Wrap(model.ErrInvalidOperation, "update requires a map-typed category",
				goerr.V("category", category),
				goerr.V("kind", kindOf(current)))
		}
		if entries == nil {
			entries = model.Entries{}
		}
		maps.Copy(entries, update)
		s.longTerm[category] = entries

	case OpSet:
		s.longTerm[category] = data

	default:
		return goerr.Wrap(model.ErrInvalidOperation, "unknown long-term operation",
			goerr.V("category", category),
			goerr.V("operation", op))
	}

	return nil
}

// GetLongTerm returns the current value of a category.
func (s *Store) GetLongTerm(category string) (model.MemoryValue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.longTerm[category]
	return v, ok
}

// LongTermCategories returns the category names in sorted order.
func (s *Store) LongTermCategories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Sorted(maps.Keys(s.longTerm))
}

// ShareData upserts the mailbox of agentID and resets its access counter.
// An empty priority means normal.
func (s *Store) ShareData(agentID string, data model.MemoryValue, priority model.Priority) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if priority == "" {
		priority = model.PriorityNormal
	}
	s.shared[agentID] = &model.SharedEntry{
		Data:          data,
		Timestamp:     s.now(),
		Priority:      priority,
		AccessedCount: 0,
	}
}

// GetSharedData returns the data shared by agentID and counts the access. A miss does
// not change any state.
func (s *Store) GetSharedData(agentID string) (model.MemoryValue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.shared[agentID]
	if !ok {
		return nil, false
	}
	entry.AccessedCount++
	return entry.Data, true
}

// GetSharedEntry returns a copy of the shared entry without counting an access.
func (s *Store) GetSharedEntry(agentID string) (model.SharedEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.shared[agentID]
	if !ok {
		return model.SharedEntry{}, false
	}
	return *entry, true
}

// GetAllSharedData returns agentID to data, filtered by exact priority unless priority
// is empty.
func (s *Store) GetAllSharedData(priority model.Priority) map[string]model.MemoryValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]model.MemoryValue, len(s.shared))
	for id, entry := range s.shared {
		if priority != "" && entry.Priority != priority {
			continue
		}
		out[id] = entry.Data
	}
	return out
}

func (s *Store) ClearShortTerm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shortTerm = make(map[string]*model.MemoryEntry)
}

// ClearSharedData removes the mailbox of agentID, or every mailbox when agentID is empty.
func (s *Store) ClearSharedData(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if agentID == "" {
		s.shared = make(map[string]*model.SharedEntry)
		return
	}
	delete(s.shared, agentID)
}

// Export returns a deep copy of the whole state.
func (s *Store) Export() *model.MemorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &model.MemorySnapshot{
		ShortTerm:  make(map[string]*model.MemoryEntry, len(s.shortTerm)),
		LongTerm:   make(model.Categories, len(s.longTerm)),
		SharedData: make(map[string]*model.SharedEntry, len(s.shared)),
		ExportedAt: s.now(),
	}
	for k, v := range s.shortTerm {
		entry := *v
		entry.Metadata = maps.Clone(v.Metadata)
		snap.ShortTerm[k] = &entry
	}
	for k, v := range s.longTerm {
		snap.LongTerm[k] = cloneContainer(v)
	}
	for k, v := range s.shared {
		entry := *v
		snap.SharedData[k] = &entry
	}
	return snap
}

// Import replaces the sections present in snap; nil sections are left untouched.
func (s *Store) Import(snap *model.MemorySnapshot) {
	if snap == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.ShortTerm != nil {
		s.shortTerm = make(map[string]*model.MemoryEntry, len(snap.ShortTerm))
		for k, v := range snap.ShortTerm {
			if v == nil {
				continue
			}
			entry := *v
			entry.Metadata = maps.Clone(v.Metadata)
			s.shortTerm[k] = &entry
		}
	}
	if snap.LongTerm != nil {
		s.longTerm = make(model.Categories, len(snap.LongTerm))
		for k, v := range snap.LongTerm {
			s.longTerm[k] = cloneContainer(v)
		}
	}
	if snap.SharedData != nil {
		s.shared = make(map[string]*model.SharedEntry, len(snap.SharedData))
		for k, v := range snap.SharedData {
			if v == nil {
				continue
			}
			entry := *v
			s.shared[k] = &entry
		}
	}
}

// Stats returns counts, uptime and the key breakdown of the store.
func (s *Store) Stats() model.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return model.Stats{
		ShortTermItems:     len(s.shortTerm),
		LongTermCategories: len(s.longTerm),
		SharedDataAgents:   len(s.shared),
		UptimeSeconds:      s.now().Sub(s.createdAt).Seconds(),
		Breakdown: model.MemoryBreakdown{
			ShortTermKeys:      slices.Sorted(maps.Keys(s.shortTerm)),
			LongTermCategories: slices.Sorted(maps.Keys(s.longTerm)),
			SharedAgents:       slices.Sorted(maps.Keys(s.shared)),
		},
	}
}

// cloneContainer copies list and map containers so that later appends or updates do
// not leak between a store and its snapshots. Leaf values are shared.
func cloneContainer(v model.MemoryValue) model.MemoryValue {
	switch x := v.(type) {
	case model.ValueList:
		return slices.Clone(x)
	case model.Entries:
		return maps.Clone(x)
	default:
		return v
	}
}

func kindOf(v model.MemoryValue) model.ValueKind {
	if v == nil {
		return ""
	}
	return v.Kind()
}

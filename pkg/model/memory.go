package model

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// ValueKind tags a MemoryValue variant in serialized snapshots.
type ValueKind string

const (
	KindText          ValueKind = "text"
	KindNumber        ValueKind = "number"
	KindList          ValueKind = "list"
	KindEntries       ValueKind = "entries"
	KindPlan          ValueKind = "plan"
	KindStrategy      ValueKind = "search_strategy"
	KindGathered      ValueKind = "gathered_info"
	KindAnalysis      ValueKind = "analysis"
	KindReport        ValueKind = "report"
	KindParsedReport  ValueKind = "parsed_report"
	KindSource        ValueKind = "source"
	KindSources       ValueKind = "sources"
	KindAgentStatus   ValueKind = "agent_status"
	KindSourceRanking ValueKind = "source_ranking"
)

// MemoryValue is the closed set of payloads that can be held by the memory store.
// Consumers switch on the concrete type.
type MemoryValue interface {
	Kind() ValueKind
}

type TextValue string

type NumberValue float64

// ValueList is the container of list-typed long-term categories.
type ValueList []MemoryValue

// Entries is the container of map-typed long-term categories.
type Entries map[string]MemoryValue

type SourceList []*Source

// SourceRanking is one evaluated source kept as a reliable source.
type SourceRanking struct {
	URL          string  `json:"url"`
	Title        string  `json:"title"`
	Reliability  float64 `json:"reliability"`
	Recency      float64 `json:"recency"`
	OverallScore float64 `json:"overall_score"`
}

func (TextValue) Kind() ValueKind       { return KindText }
func (NumberValue) Kind() ValueKind     { return KindNumber }
func (ValueList) Kind() ValueKind       { return KindList }
func (Entries) Kind() ValueKind         { return KindEntries }
func (SourceList) Kind() ValueKind      { return KindSources }
func (*ResearchPlan) Kind() ValueKind   { return KindPlan }
func (*SearchStrategy) Kind() ValueKind { return KindStrategy }
func (*GatheredInfo) Kind() ValueKind   { return KindGathered }
func (*AnalysisResult) Kind() ValueKind { return KindAnalysis }
func (*Report) Kind() ValueKind         { return KindReport }
func (*ParsedReport) Kind() ValueKind   { return KindParsedReport }
func (*Source) Kind() ValueKind         { return KindSource }
func (*AgentStatus) Kind() ValueKind    { return KindAgentStatus }
func (*SourceRanking) Kind() ValueKind  { return KindSourceRanking }

// Keys returns the entry keys in sorted order.
func (x Entries) Keys() []string {
	keys := make([]string, 0, len(x))
	for k := range x {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type envelope struct {
	Kind ValueKind       `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodeValue serializes a value together with its kind tag.
func EncodeValue(v MemoryValue) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	var data []byte
	var err error
	switch x := v.(type) {
	case ValueList:
		items := make([]json.RawMessage, 0, len(x))
		for _, item := range x {
			raw, err := EncodeValue(item)
			if err != nil {
				return nil, err
			}
			items = append(items, raw)
		}
		data, err = json.Marshal(items)
	case Entries:
		items := make(map[string]json.RawMessage, len(x))
		for k, item := range x {
			raw, err := EncodeValue(item)
			if err != nil {
				return nil, err
			}
			items[k] = raw
		}
		data, err = json.Marshal(items)
	default:
		data, err = json.Marshal(x)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal memory value", goerr.V("kind", v.Kind()))
	}

	return json.Marshal(envelope{Kind: v.Kind(), Data: data})
}

// DecodeValue restores a value serialized by EncodeValue.
func DecodeValue(raw []byte) (MemoryValue, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal memory envelope")
	}

	var v MemoryValue
	switch env.Kind {
	case KindText:
		var x TextValue
		if err := json.Unmarshal(env.Data, &x); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal text value")
		}
		v = x
	case KindNumber:
		var x NumberValue
		if err := json.Unmarshal(env.Data, &x); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal number value")
		}
		v = x
	case KindList:
		var items []json.RawMessage
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal list value")
		}
		list := make(ValueList, 0, len(items))
		for _, item := range items {
			decoded, err := DecodeValue(item)
			if err != nil {
				return nil, err
			}
			list = append(list, decoded)
		}
		v = list
	case KindEntries:
		var items map[string]json.RawMessage
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal entries value")
		}
		entries := make(Entries, len(items))
		for k, item := range items {
			decoded, err := DecodeValue(item)
			if err != nil {
				return nil, err
			}
			entries[k] = decoded
		}
		v = entries
	case KindSources:
		return decodeAs[SourceList](env.Data)
	case KindPlan:
		return decodeAs[*ResearchPlan](env.Data)
	case KindStrategy:
		return decodeAs[*SearchStrategy](env.Data)
	case KindGathered:
		return decodeAs[*GatheredInfo](env.Data)
	case KindAnalysis:
		return decodeAs[*AnalysisResult](env.Data)
	case KindReport:
		return decodeAs[*Report](env.Data)
	case KindParsedReport:
		return decodeAs[*ParsedReport](env.Data)
	case KindSource:
		return decodeAs[*Source](env.Data)
	case KindAgentStatus:
		return decodeAs[*AgentStatus](env.Data)
	case KindSourceRanking:
		return decodeAs[*SourceRanking](env.Data)
	default:
		return nil, goerr.Wrap(ErrUnknownValueKind, "cannot decode memory value", goerr.V("kind", env.Kind))
	}

	return v, nil
}

func decodeAs[T MemoryValue](data json.RawMessage) (MemoryValue, error) {
	var x T
	if err := json.Unmarshal(data, &x); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal memory value", goerr.V("kind", x.Kind()))
	}
	return x, nil
}

// MemoryEntry is one short-term value.
type MemoryEntry struct {
	Value     MemoryValue
	Timestamp time.Time
	Metadata  map[string]string
}

type memoryEntryJSON struct {
	Value     json.RawMessage   `json:"value"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (x MemoryEntry) MarshalJSON() ([]byte, error) {
	raw, err := EncodeValue(x.Value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(memoryEntryJSON{Value: raw, Timestamp: x.Timestamp, Metadata: x.Metadata})
}

func (x *MemoryEntry) UnmarshalJSON(data []byte) error {
	var v memoryEntryJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return goerr.Wrap(err, "failed to unmarshal memory entry")
	}
	value, err := DecodeValue(v.Value)
	if err != nil {
		return err
	}
	x.Value = value
	x.Timestamp = v.Timestamp
	x.Metadata = v.Metadata
	return nil
}

// SharedEntry is the mailbox of one agent in the shared namespace.
type SharedEntry struct {
	Data          MemoryValue
	Timestamp     time.Time
	Priority      Priority
	AccessedCount int
}

type sharedEntryJSON struct {
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Priority      Priority        `json:"priority"`
	AccessedCount int             `json:"accessed_count"`
}

func (x SharedEntry) MarshalJSON() ([]byte, error) {
	raw, err := EncodeValue(x.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sharedEntryJSON{
		Data:          raw,
		Timestamp:     x.Timestamp,
		Priority:      x.Priority,
		AccessedCount: x.AccessedCount,
	})
}

func (x *SharedEntry) UnmarshalJSON(data []byte) error {
	var v sharedEntryJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return goerr.Wrap(err, "failed to unmarshal shared entry")
	}
	value, err := DecodeValue(v.Data)
	if err != nil {
		return err
	}
	x.Data = value
	x.Timestamp = v.Timestamp
	x.Priority = v.Priority
	x.AccessedCount = v.AccessedCount
	return nil
}

// Categories is the long-term namespace keyed by category name.
type Categories map[string]MemoryValue

func (x Categories) MarshalJSON() ([]byte, error) {
	if x == nil {
		return []byte("null"), nil
	}
	out := make(map[string]json.RawMessage, len(x))
	for k, v := range x {
		raw, err := EncodeValue(v)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode category", goerr.V("category", k))
		}
		out[k] = raw
	}
	return json.Marshal(out)
}

func (x *Categories) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return goerr.Wrap(err, "failed to unmarshal categories")
	}
	if raw == nil {
		*x = nil
		return nil
	}
	out := make(Categories, len(raw))
	for k, v := range raw {
		value, err := DecodeValue(v)
		if err != nil {
			return goerr.Wrap(err, "failed to decode category", goerr.V("category", k))
		}
		out[k] = value
	}
	*x = out
	return nil
}

// MemorySnapshot is the full serialized state of a memory store. A nil section is
// absent and left untouched on import.
type MemorySnapshot struct {
	ShortTerm  map[string]*MemoryEntry `json:"short_term"`
	LongTerm   Categories              `json:"long_term"`
	SharedData map[string]*SharedEntry `json:"shared_data"`
	ExportedAt time.Time               `json:"exported_at"`
}

type MemoryBreakdown struct {
	ShortTermKeys      []string `json:"short_term_keys"`
	LongTermCategories []string `json:"long_term_categories"`
	SharedAgents       []string `json:"shared_agents"`
}

// Stats summarizes a memory store.
type Stats struct {
	ShortTermItems     int             `json:"short_term_items"`
	LongTermCategories int             `json:"long_term_categories"`
	SharedDataAgents   int             `json:"shared_data_agents"`
	UptimeSeconds      float64         `json:"uptime_seconds"`
	Breakdown          MemoryBreakdown `json:"memory_breakdown"`
}

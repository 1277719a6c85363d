// Package strategy implements retrieval-augmented strategy storage and
// the reflective learning loop that mutates it, plus the strategic
// planner that calls out to the abstract LLM oracle.
package strategy

import (
	"strings"
	"sync"

	"github.com/basalt-robotics/cortex/internal/store"
)

// Entry is a single learned rule.
type Entry struct {
	ID          uint64
	RuleText    string
	Tags        []string
	UsageCount  int
	SuccessRate float64
}

const retrievalThreshold = 0.1

// DB holds the strategy set and persists it through the load/save hook
// contract (no query engine: §1 explicitly excludes persistent
// distributed storage).
type DB struct {
	mu      sync.Mutex
	entries map[uint64]*Entry
	nextID  uint64
	store   store.Store
}

// NewDB constructs a DB backed by st (use store.NullStore{} for none).
func NewDB(st store.Store) *DB {
	if st == nil {
		st = store.NullStore{}
	}
	return &DB{entries: map[uint64]*Entry{}, store: st}
}

// Load restores entries from the backing store, if any were saved.
func (d *DB) Load() error {
	data, err := d.store.Load()
	if err != nil || len(data) == 0 {
		return err
	}
	entries, nextID, err := decodeEntries(data)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.entries = entries
	d.nextID = nextID
	d.mu.Unlock()
	return nil
}

func (d *DB) persist() error {
	data, err := encodeEntries(d.entries, d.nextID)
	if err != nil {
		return err
	}
	return d.store.Save(data)
}

// Add inserts a new strategy and returns its ID. IDs are a counter
// private to this DB, independent of the cognition engine's track_id
// counter — the two ID spaces are unrelated and never compared.
func (d *DB) Add(ruleText string, tags []string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.entries[id] = &Entry{ID: id, RuleText: ruleText, Tags: tags, SuccessRate: 0.5}
	_ = d.persist()
	return id
}

func (d *DB) Modify(id uint64, newRule string, tags []string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[id]
	if !ok {
		return false
	}
	if newRule != "" {
		e.RuleText = newRule
	}
	if tags != nil {
		e.Tags = tags
	}
	_ = d.persist()
	return true
}

func (d *DB) Delete(id uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[id]; !ok {
		return false
	}
	delete(d.entries, id)
	_ = d.persist()
	return true
}

func (d *DB) Get(id uint64) (Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// All returns a snapshot of every entry, for building a reflection
// prompt that lists existing rules by ID.
func (d *DB) All() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Entry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, *e)
	}
	return out
}

// RetrieveRelevant scores entries by tag-substring similarity to the
// concatenation of taskDesc and recentSummary, weighted by usage, and
// returns the top 3 above threshold. recentSummary folds in recent
// stream context (what just happened) so a strategy tagged for the
// current situation surfaces even when taskDesc alone doesn't mention it.
func (d *DB) RetrieveRelevant(taskDesc, recentSummary string) []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()

	type scored struct {
		entry Entry
		score float64
	}
	var candidates []scored
	lowerDesc := strings.ToLower(taskDesc + " " + recentSummary)

	for _, e := range d.entries {
		var sim float64
		for _, tag := range e.Tags {
			if strings.Contains(lowerDesc, strings.ToLower(tag)) {
				sim += 1.0 / float64(len(e.Tags))
			}
		}
		score := sim * (1 + 0.1*float64(e.UsageCount))
		if score > retrievalThreshold {
			candidates = append(candidates, scored{*e, score})
		}
	}

	// simple insertion sort descending by score; N is small in practice.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].score > candidates[j-1].score; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	n := 3
	if n > len(candidates) {
		n = len(candidates)
	}
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		out[i] = candidates[i].entry
		d.entries[out[i].ID].UsageCount++
	}
	return out
}

// BuildRetrievalBlock formats the retrieved strategies as a text block
// suitable for splicing into an LLM prompt.
func BuildRetrievalBlock(entries []Entry) string {
	if len(entries) == 0 {
		return "(no relevant strategies learned yet)"
	}
	var b strings.Builder
	for _, e := range entries {
		b.WriteString("- ")
		b.WriteString(e.RuleText)
		b.WriteString("\n")
	}
	return b.String()
}

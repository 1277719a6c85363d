package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basalt-robotics/cortex/internal/store"
)

func TestRetrieveRelevantScoresByTagSimilarity(t *testing.T) {
	db := NewDB(store.NullStore{})
	db.Add("approach slowly near fragile items", []string{"fragile", "grasp"})
	db.Add("announce before moving the arm", []string{"safety"})

	results := db.RetrieveRelevant("grasp the cup", "it looked fragile")
	require.NotEmpty(t, results)
	assert.Equal(t, "approach slowly near fragile items", results[0].RuleText)
}

func TestRetrieveRelevantBelowThresholdExcluded(t *testing.T) {
	db := NewDB(store.NullStore{})
	db.Add("unrelated rule about lighting", []string{"lighting"})

	results := db.RetrieveRelevant("grasp the fragile cup", "")
	assert.Empty(t, results)
}

func TestRetrieveRelevantConsidersRecentStreamSummary(t *testing.T) {
	db := NewDB(store.NullStore{})
	db.Add("slow down near people", []string{"safety", "person"})

	results := db.RetrieveRelevant("pick up the box", "a person just walked into frame")
	require.NotEmpty(t, results)
	assert.Equal(t, "slow down near people", results[0].RuleText)
}

func TestIDsNeverReused(t *testing.T) {
	db := NewDB(store.NullStore{})
	id1 := db.Add("rule one", nil)
	db.Delete(id1)
	id2 := db.Add("rule two", nil)
	assert.NotEqual(t, id1, id2)
}

func TestPersistenceRoundTrip(t *testing.T) {
	st := store.NewJSONStore(t.TempDir() + "/strategies.json")
	db := NewDB(st)
	db.Add("persisted rule", []string{"tag"})

	reloaded := NewDB(st)
	require.NoError(t, reloaded.Load())

	entries := reloaded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "persisted rule", entries[0].RuleText)
}

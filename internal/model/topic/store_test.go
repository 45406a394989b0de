package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStoreFindByID(t *testing.T) {
	store := NewMemoryStore(SeedCategories(), Seed())

	got, ok := store.FindByID("3")
	assert.True(t, ok)
	assert.Equal(t, "Job interview", got.Name)

	_, ok = store.FindByID("missing")
	assert.False(t, ok)
}

func TestMemoryStoreListIsCopy(t *testing.T) {
	store := NewMemoryStore(nil, Seed())
	list := store.List()
	list[0].Name = "changed"

	assert.Equal(t, "Weekend plans", store.List()[0].Name)
}

func TestSeedTopicsReferenceKnownCategories(t *testing.T) {
	known := map[string]bool{}
	for _, c := range SeedCategories() {
		known[c.ID] = true
	}
	for _, item := range Seed() {
		assert.True(t, known[item.CategoryID], "topic %s has unknown category %s", item.ID, item.CategoryID)
	}
}

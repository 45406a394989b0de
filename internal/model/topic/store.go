package topic

// Store exposes topic retrieval for HTTP handlers.
type Store interface {
	List() []Topic
	Categories() []Category
	FindByID(id string) (Topic, bool)
}

// MemoryStore implements Store with in-memory slices.
type MemoryStore struct {
	categories []Category
	items      []Topic
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied categories and topics.
func NewMemoryStore(categories []Category, items []Topic) *MemoryStore {
	return &MemoryStore{
		categories: append([]Category(nil), categories...),
		items:      append([]Topic(nil), items...),
	}
}

// List returns every topic.
func (s *MemoryStore) List() []Topic {
	return append([]Topic(nil), s.items...)
}

// Categories returns every category.
func (s *MemoryStore) Categories() []Category {
	return append([]Category(nil), s.categories...)
}

// FindByID looks up a topic by identifier.
func (s *MemoryStore) FindByID(id string) (Topic, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Topic{}, false
}

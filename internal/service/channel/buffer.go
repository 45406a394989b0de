package channel

import "github.com/parley-app/parley/internal/model/conversation"

// buffer is the append-only transcript of one handle. A positive limit turns on
// drop-oldest eviction; sequence numbers keep counting regardless.
type buffer struct {
	limit int
	items []conversation.Message
	next  uint64
}

func newBuffer(limit int) *buffer {
	capacity := 16
	if limit > 0 && limit < capacity {
		capacity = limit
	}
	return &buffer{
		limit: limit,
		items: make([]conversation.Message, 0, capacity),
	}
}

func (b *buffer) append(sender conversation.Sender, text string) conversation.Message {
	msg := conversation.Message{Sender: sender, Text: text, Sequence: b.next}
	b.next++
	b.items = append(b.items, msg)

	if b.limit > 0 && len(b.items) > b.limit {
		drop := len(b.items) - b.limit
		copy(b.items, b.items[drop:])
		b.items = b.items[:b.limit]
	}
	return msg
}

func (b *buffer) snapshot() []conversation.Message {
	copied := make([]conversation.Message, len(b.items))
	copy(copied, b.items)
	return copied
}

package channel

import "github.com/parley-app/parley/internal/model/conversation"

// Sink receives what a handle produces. All calls for one handle are made from that
// handle's event loop goroutine, one at a time.
type Sink interface {
	OnMessage(msg conversation.Message)
	OnError(err error)
	OnClosed()
}

// StateObserver may be implemented by a Sink that wants every state transition.
type StateObserver interface {
	OnStateChange(from, to conversation.State)
}

// SkipNotifier may be implemented by a Sink that wants to hear about opens suppressed by
// validation. It is called on the goroutine that called Open.
type SkipNotifier interface {
	OnSkipped(err error)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) OnMessage(conversation.Message) {}
func (NopSink) OnError(error)                  {}
func (NopSink) OnClosed()                      {}

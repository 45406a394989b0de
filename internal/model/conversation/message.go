package conversation

// Sender identifies which side produced a message.
type Sender string

const (
	SenderLocal  Sender = "local"
	SenderRemote Sender = "remote"
)

// Message is one entry of a channel's append-only transcript.
type Message struct {
	Sender   Sender `json:"sender"`
	Text     string `json:"text"`
	Sequence uint64 `json:"sequence"`
}

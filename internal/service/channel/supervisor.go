package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/model/conversation"
)

// Policy bounds how often a Supervisor replaces a failed handle.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration // attempt n waits n*Backoff before redialing
}

// DefaultPolicy retries twice with a linear one second backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     time.Second,
	}
}

// Supervisor adds retries on top of a Channel without changing handle semantics: every
// attempt is a fresh handle with its own connection and transcript.
type Supervisor struct {
	channel *Channel
	policy  Policy
}

// NewSupervisor wraps ch. A non-positive MaxAttempts means a single attempt.
func NewSupervisor(ch *Channel, policy Policy) *Supervisor {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Supervisor{channel: ch, policy: policy}
}

// Run opens conversations until one ends without a transport error, attempts run out or
// ctx is cancelled. onOpen, when set, sees every handle right after it is opened. The
// last handle is always returned.
func (s *Supervisor) Run(ctx context.Context, req conversation.Request, cred conversation.Credential, onOpen func(*Handle)) (*Handle, error) {
	var (
		h       *Handle
		lastErr error
	)

	for attempt := 0; attempt < s.policy.MaxAttempts; attempt++ {
		h = s.channel.Open(req, cred)
		if onOpen != nil {
			onOpen(h)
		}
		if err := h.Skipped(); err != nil {
			return h, err
		}

		select {
		case <-ctx.Done():
			s.channel.Close(h)
			<-h.Done()
			return h, ctx.Err()
		case <-h.Done():
		}

		if h.State() != conversation.StateErrored {
			return h, nil
		}
		lastErr = h.Err()

		if attempt == s.policy.MaxAttempts-1 {
			break
		}

		retryDelay := time.Duration(attempt+1) * s.policy.Backoff
		log.Info().Str("component", "supervisor").Int("attempt", attempt+1).Dur("delay", retryDelay).Err(lastErr).Msg("conversation failed, reopening")
		select {
		case <-ctx.Done():
			return h, ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	return h, fmt.Errorf("conversation failed after %d attempts: %w", s.policy.MaxAttempts, lastErr)
}

package channel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-app/parley/internal/model/conversation"
)

var fastPolicy = Policy{MaxAttempts: 3, Backoff: time.Millisecond}

func TestSupervisorReopensAfterErrors(t *testing.T) {
	dialer := &fakeDialer{errs: []error{errors.New("refused"), errors.New("refused")}}
	ch := newTestChannel(t, dialer, nil)
	sup := NewSupervisor(ch, fastPolicy)

	var opened []*Handle
	onOpen := func(h *Handle) {
		opened = append(opened, h)
		go func() {
			// the third attempt connects; end it with an orderly close
			for h.State() != conversation.StateReceiving {
				if h.State().Terminal() {
					return
				}
				time.Sleep(time.Millisecond)
			}
			dialer.conn(0).fail(&websocket.CloseError{Code: websocket.CloseNormalClosure})
		}()
	}

	h, err := sup.Run(context.Background(), conversation.Request{TopicID: "42", DurationMinutes: 1}, "tok", onOpen)
	require.NoError(t, err)
	assert.Equal(t, conversation.StateClosed, h.State())
	assert.Equal(t, 3, dialer.calls())
	require.Len(t, opened, 3)
	assert.NotEqual(t, opened[0].ID(), opened[2].ID())
}

func TestSupervisorGivesUp(t *testing.T) {
	boom := errors.New("refused")
	dialer := &fakeDialer{errs: []error{boom, boom, boom, boom}}
	ch := newTestChannel(t, dialer, nil)

	h, err := NewSupervisor(ch, fastPolicy).Run(context.Background(), conversation.Request{TopicID: "42", DurationMinutes: 1}, "tok", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, conversation.StateErrored, h.State())
	assert.Equal(t, 3, dialer.calls())
}

func TestSupervisorStopsOnSkip(t *testing.T) {
	dialer := &fakeDialer{}
	ch := newTestChannel(t, dialer, nil)

	_, err := NewSupervisor(ch, fastPolicy).Run(context.Background(), conversation.Request{TopicID: "42", DurationMinutes: 2}, "tok", nil)
	require.ErrorIs(t, err, conversation.ErrValidationSkipped)
	assert.Zero(t, dialer.calls())
}

func TestSupervisorHonoursContext(t *testing.T) {
	dialer := &fakeDialer{}
	ch := newTestChannel(t, dialer, nil)
	ctx, cancel := context.WithCancel(context.Background())

	onOpen := func(h *Handle) {
		go func() {
			for h.State() != conversation.StateReceiving {
				time.Sleep(time.Millisecond)
			}
			cancel()
		}()
	}

	h, err := NewSupervisor(ch, fastPolicy).Run(ctx, conversation.Request{TopicID: "42", DurationMinutes: 1}, "tok", onOpen)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, conversation.StateClosed, h.State())
	assert.Equal(t, 1, dialer.calls())
}

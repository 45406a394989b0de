package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/parley-app/parley/internal/model/conversation"
	"github.com/parley-app/parley/internal/service/channel"
	"github.com/parley-app/parley/internal/service/credential"
)

const quitCommand = "/quit"

func newChatCmd(a *app) *cobra.Command {
	var req conversation.Request

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Hold a timed conversation about a topic",
		Long: `Opens a conversation about the chosen topic. Type a line and press enter to
answer; the server ends the conversation when the duration is over. Type /quit
or press Ctrl-C to leave early.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd.Context(), req)
		},
	}
	cmd.Flags().StringVar(&req.TopicID, "topic", "", "topic id (see `talk topics`)")
	cmd.Flags().IntVar(&req.DurationMinutes, "duration", 5, "conversation length in minutes: 1, 5 or 10")
	return cmd
}

// runChat drives one conversation: stdin lines go to the peer, the terminal sink prints
// whatever the channel reports.
func (a *app) runChat(ctx context.Context, req conversation.Request) error {
	cred, err := a.store.Token()
	if err != nil && !errors.Is(err, credential.ErrNoCredential) {
		return err
	}

	endpoint, err := channel.NewEndpoint(a.cfg.APIBaseURL)
	if err != nil {
		return err
	}

	opts := channel.DefaultTransportOptions()
	opts.HandshakeTimeout = a.cfg.HandshakeTimeout
	opts.PingInterval = a.cfg.PingInterval
	opts.ReadTimeout = a.cfg.ReadTimeout

	sink := newTerminalSink(a.out)
	ch := channel.New(endpoint, channel.NewWebSocketDialer(opts), sink, channel.WithBufferLimit(a.cfg.BufferLimit))
	defer func() { ch.Close(ch.Current()) }()

	var current atomic.Pointer[channel.Handle]
	supervisor := channel.NewSupervisor(ch, channel.Policy{MaxAttempts: a.cfg.MaxAttempts, Backoff: a.cfg.RetryBackoff})

	result := make(chan error, 1)
	go func() {
		_, err := supervisor.Run(ctx, req, cred, func(h *channel.Handle) {
			current.Store(h)
		})
		result <- err
	}()

	lines := make(chan string)
	go scanLines(a.in, lines)

	for {
		select {
		case err := <-result:
			if ctx.Err() != nil {
				return nil
			}
			return err
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			h := current.Load()
			if line == quitCommand {
				ch.Close(h)
				continue
			}
			if h == nil {
				continue
			}
			if err := h.Send(line); err != nil {
				sink.notice("(not sent: %v)", err)
			}
		}
	}
}

func scanLines(r io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		out <- scanner.Text()
	}
}

// terminalSink prints a conversation as it happens.
type terminalSink struct {
	mu  sync.Mutex
	out io.Writer
}

func newTerminalSink(out io.Writer) *terminalSink {
	return &terminalSink{out: out}
}

func (s *terminalSink) OnMessage(msg conversation.Message) {
	s.notice("partner> %s", msg.Text)
}

func (s *terminalSink) OnError(err error) {
	s.notice("Connection lost: %v", err)
}

func (s *terminalSink) OnClosed() {
	s.notice("Conversation ended.")
}

func (s *terminalSink) OnSkipped(err error) {
	if errors.Is(err, conversation.ErrMissingCredential) {
		s.notice("Log in first with `talk login`.")
		return
	}
	s.notice("Conversation not started: %v", err)
}

func (s *terminalSink) OnStateChange(from, to conversation.State) {
	log.Debug().Str("component", "talk").Stringer("from", from).Stringer("to", to).Msg("state")
}

func (s *terminalSink) notice(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format+"\n", args...)
}

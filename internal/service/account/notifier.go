package account

import (
	"context"

	"github.com/rs/zerolog/log"
)

// ResetNotifier delivers a password reset token to the account owner.
type ResetNotifier interface {
	NotifyReset(ctx context.Context, email, token string) error
}

// LogNotifier writes the reset link to the log instead of sending mail. It is meant
// for development servers.
type LogNotifier struct {
	LinkBase string
}

func (n LogNotifier) NotifyReset(_ context.Context, email, token string) error {
	log.Info().Str("component", "account").Str("email", email).Str("link", n.LinkBase+token).Msg("password reset requested")
	return nil
}

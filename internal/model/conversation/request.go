package conversation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidationSkipped marks a request that was not opened because a precondition failed.
	ErrValidationSkipped = errors.New("conversation open skipped")
	ErrEmptyTopic        = fmt.Errorf("%w: topic id is required", ErrValidationSkipped)
	ErrInvalidDuration   = fmt.Errorf("%w: duration must be one of 1, 5 or 10 minutes", ErrValidationSkipped)
	ErrMissingCredential = fmt.Errorf("%w: credential is required", ErrValidationSkipped)
)

// AllowedDurations lists the conversation lengths, in minutes, a caller may request.
var AllowedDurations = []int{1, 5, 10}

// Request identifies one conversation attempt. It is immutable once built.
type Request struct {
	TopicID         string `json:"topicId"`
	DurationMinutes int    `json:"durationMinutes"`
}

// ValidDuration reports whether minutes is one of AllowedDurations.
func ValidDuration(minutes int) bool {
	for _, allowed := range AllowedDurations {
		if minutes == allowed {
			return true
		}
	}
	return false
}

// Validate checks the request together with the credential that will authenticate it.
func (r Request) Validate(cred Credential) error {
	if strings.TrimSpace(r.TopicID) == "" {
		return ErrEmptyTopic
	}
	if !ValidDuration(r.DurationMinutes) {
		return ErrInvalidDuration
	}
	if cred.Empty() {
		return ErrMissingCredential
	}
	return nil
}

// Credential is an opaque bearer token issued at login.
type Credential string

// Empty reports whether no token is present.
func (c Credential) Empty() bool {
	return strings.TrimSpace(string(c)) == ""
}

// Bearer renders the credential as an Authorization value.
func (c Credential) Bearer() string {
	return "Bearer " + string(c)
}

// AuthEnvelope is the single frame sent right after the transport connects.
type AuthEnvelope struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// NewAuthEnvelope wraps cred into the auth frame.
func NewAuthEnvelope(cred Credential) AuthEnvelope {
	return AuthEnvelope{Type: "auth", Token: cred.Bearer()}
}

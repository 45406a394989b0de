package channel

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/parley-app/parley/internal/model/conversation"
)

const conversationPath = "/conversation"

// Endpoint builds conversation targets from a configured base address. An http base maps
// to ws and an https base to wss, so the socket follows the API's transport security.
type Endpoint struct {
	base *url.URL
}

// NewEndpoint parses base, which must use http, https, ws or wss.
func NewEndpoint(base string) (Endpoint, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid conversation endpoint %q: %w", base, err)
	}
	if u.Host == "" {
		return Endpoint{}, fmt.Errorf("invalid conversation endpoint %q: missing host", base)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return Endpoint{}, fmt.Errorf("invalid conversation endpoint %q: unsupported scheme %q", base, u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return Endpoint{base: u}, nil
}

// Secure reports whether targets use wss.
func (e Endpoint) Secure() bool {
	return e.base != nil && e.base.Scheme == "wss"
}

// ConversationURL renders <scheme>://<host>/conversation?topic_id=..&duration=..
func (e Endpoint) ConversationURL(req conversation.Request) string {
	if e.base == nil {
		return ""
	}
	target := *e.base
	target.Path = target.Path + conversationPath

	target.RawQuery = "topic_id=" + url.QueryEscape(req.TopicID) + "&duration=" + strconv.Itoa(req.DurationMinutes)
	return target.String()
}

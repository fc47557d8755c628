package mindtree

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/httpx"
)

// Request describes one backend call. Body is JSON-encoded when non-nil.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any

	// SkipAuthRefresh sends the request without a bearer token and never
	// reacts to a 401 by renewing. Login, signup and renewal itself use it.
	SkipAuthRefresh bool
}

func (r *Request) op() string {
	return r.Method + " " + r.Path
}

// Response is a successful (2xx) backend reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unwraps the envelope and decodes its data field into v.
func (r *Response) Decode(v any) error {
	var env httpx.Envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return fmt.Errorf("failed to decode envelope: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return errors.New("mindtree: response has no data")
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// Message returns the envelope's message, or "".
func (r *Response) Message() string {
	var env httpx.Envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return ""
	}
	return env.Message
}

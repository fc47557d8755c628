package mindtree

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/idx"
)

const maxSSELine = 1 << 20

// SSETransport opens text/event-stream connections with a bearer token.
type SSETransport struct {
	Client *http.Client
	URL    string
}

// NewSSETransport returns a transport for url. client must not carry a
// Timeout since streams stay open indefinitely.
func NewSSETransport(client *http.Client, url string) *SSETransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &SSETransport{Client: client, URL: url}
}

func (t *SSETransport) Open(ctx context.Context, token string) (PushStream, error) {
	op := "GET " + t.URL

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return nil, &Error{Kind: KindRequest, Op: op, Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", idx.Prefixed("push"))

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, networkError(op, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, parseErrorResponse(op, resp.StatusCode, body)
	}

	return newSSEStream(resp.Body), nil
}

// sseStream parses the event-stream format: "field: value" lines, comment
// lines starting with ':', and a blank line dispatching the pending event.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	lastID  string
}

func newSSEStream(body io.ReadCloser) *sseStream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64<<10), maxSSELine)
	return &sseStream{body: body, scanner: sc}
}

func (s *sseStream) Next() (PushEvent, error) {
	var (
		event   string
		data    []string
		hasData bool
	)

	for s.scanner.Scan() {
		line := strings.TrimSuffix(s.scanner.Text(), "\r")

		if line == "" {
			if !hasData {
				event = ""
				continue
			}
			if event == "" {
				event = "message"
			}
			return PushEvent{ID: s.lastID, Event: event, Data: strings.Join(data, "\n")}, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			event = value
		case "data":
			data = append(data, value)
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				s.lastID = value
			}
		}
	}

	if err := s.scanner.Err(); err != nil {
		return PushEvent{}, networkError("push stream", err)
	}
	return PushEvent{}, networkError("push stream", io.EOF)
}

func (s *sseStream) Close() error {
	return s.body.Close()
}

package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/httpx"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/idx"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/slogx"
)

const keepAliveInterval = 15 * time.Second

type frame struct {
	event string
	data  string
	last  bool
}

// stream is one open push connection.
type stream struct {
	frames chan frame
	closed chan struct{}
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	log := slogx.FromContext(slogx.WithAttrs(r.Context(), "user_id", userID))
	token, _ := httpx.BearerToken(r)

	rc := http.NewResponseController(w)

	st := &stream{frames: make(chan frame, 16), closed: make(chan struct{})}
	s.mu.Lock()
	if s.streams[userID] == nil {
		s.streams[userID] = make(map[*stream]struct{})
	}
	s.streams[userID][st] = struct{}{}
	s.pushTokens = append(s.pushTokens, token)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.streams[userID], st)
		s.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		log.Warn("push flush failed", "err", err)
		return
	}
	log.Debug("push stream opened")

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case f := <-st.frames:
			_, _ = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", idx.New(), f.event, f.data)
			if err := rc.Flush(); err != nil {
				return
			}
			if f.last {
				return
			}
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			if err := rc.Flush(); err != nil {
				return
			}
		case <-st.closed:
			return
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		}
	}
}

// Notify stores n as unchecked for its receiver and pushes it to every open
// stream of that member. Missing ids and timestamps are filled in.
func (s *Server) Notify(n Notification) (Notification, error) {
	if n.ID == "" {
		n.ID = idx.New().String()
	}
	if n.CreatedAt == "" {
		n.CreatedAt = s.cfg.Now().UTC().Format(time.RFC3339)
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return Notification{}, err
	}

	s.mu.Lock()
	m, ok := s.members[n.ReceiverUserID]
	if !ok {
		s.mu.Unlock()
		return Notification{}, fmt.Errorf("mockapi: unknown receiver %q", n.ReceiverUserID)
	}
	m.unchecked = append(m.unchecked, n)
	s.mu.Unlock()

	s.broadcast(n.ReceiverUserID, frame{event: "notification", data: string(raw)})
	return n, nil
}

// PushRaw sends an arbitrary event to userID's streams.
func (s *Server) PushRaw(userID, event, data string) {
	s.broadcast(userID, frame{event: event, data: data})
}

// SignalTokenInvalid sends the invalid-token error event and ends userID's
// streams, the way the backend reacts to an access token expiring mid-stream.
func (s *Server) SignalTokenInvalid(userID string) {
	raw, _ := json.Marshal(httpx.Envelope{
		Code:    http.StatusUnauthorized,
		Status:  httpx.StatusAccessTokenExpired,
		Message: "access token expired",
	})
	s.broadcast(userID, frame{event: "error", data: string(raw), last: true})
}

// DropStreams closes userID's streams without any event, like a network drop.
func (s *Server) DropStreams(userID string) {
	s.closeStreams(userID)
}

// StreamCount returns the number of open streams for userID.
func (s *Server) StreamCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams[userID])
}

// PushTokens returns the bearer tokens of every accepted push connection in
// order.
func (s *Server) PushTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pushTokens)
}

func (s *Server) broadcast(userID string, f frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for st := range s.streams[userID] {
		select {
		case st.frames <- f:
		default:
			s.log.Warn("push stream full, dropping frame", "user_id", userID)
		}
	}
}

func (s *Server) closeStreams(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for st := range s.streams[userID] {
		close(st.closed)
		delete(s.streams[userID], st)
	}
}

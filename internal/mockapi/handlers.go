package mockapi

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/cryptox"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/httpx"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/slogx"
	"golang.org/x/crypto/bcrypt"
)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON")
		return false
	}
	return true
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID        string `json:"userId"`
		Password      string `json:"password"`
		PasswordCheck string `json:"passwordCheck"`
		Nickname      string `json:"nickname"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	switch {
	case req.UserID == "" || req.Password == "" || req.Nickname == "":
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "userId, password and nickname are required")
		return
	case req.Password != req.PasswordCheck:
		httpx.WriteError(w, http.StatusBadRequest, "PASSWORD_MISMATCH", "passwords do not match")
		return
	}

	if err := s.AddMember(req.UserID, req.Password, req.Nickname, 0); err != nil {
		httpx.WriteError(w, http.StatusConflict, "DUPLICATE_USER_ID", "user id already exists")
		return
	}
	httpx.WriteData(w, http.StatusOK, "signed up", map[string]string{"userId": req.UserID})
}

func (s *Server) handleCheckID(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "userId is required")
		return
	}
	httpx.WriteData(w, http.StatusOK, "checked", map[string]bool{"duplicate": s.HasMember(userID)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"userId"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	m, ok := s.members[req.UserID]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(m.passwordHash, []byte(req.Password)) != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid user id or password")
		return
	}

	s.mu.Lock()
	access, refresh, err := s.issuePair(m)
	s.mu.Unlock()
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to issue tokens")
		return
	}

	httpx.WriteData(w, http.StatusOK, "logged in", map[string]string{
		"userId":       m.userID,
		"nickname":     m.nickname,
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

// handleRefresh rotates a refresh token. Refresh tokens are single use.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())
	s.refreshCalls.Add(1)

	if d := time.Duration(s.refreshDelay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}

	var req struct {
		RefreshToken string `json:"refreshToken"`
		AccessToken  string `json:"accessToken"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	s.lastRenew = RenewRequest{Path: r.URL.Path, RefreshToken: req.RefreshToken, AccessToken: req.AccessToken}
	s.mu.Unlock()

	if status := int(s.refreshStatus.Load()); status != 0 {
		httpx.WriteError(w, status, "UNAVAILABLE", "token service unavailable")
		return
	}

	fp := cryptox.FingerprintToken(req.RefreshToken)

	s.mu.Lock()
	userID, ok := s.refresh[fp]
	m := s.members[userID]
	if !ok || m == nil {
		s.mu.Unlock()
		log.Info("refresh token rejected")
		httpx.WriteError(w, http.StatusUnauthorized, httpx.StatusRefreshInvalid, "refresh token expired or invalid")
		return
	}
	delete(s.refresh, fp)
	access, refresh, err := s.issuePair(m)
	s.mu.Unlock()
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to issue tokens")
		return
	}

	httpx.WriteData(w, http.StatusOK, "reissued", map[string]string{
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

// currentMember returns the member the request is authenticated as.
func (s *Server) currentMember(w http.ResponseWriter, r *http.Request) (*member, bool) {
	userID := httpx.UserIDFromContext(r.Context())

	s.mu.Lock()
	m, ok := s.members[userID]
	s.mu.Unlock()
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "MEMBER_NOT_FOUND", "member not found")
		return nil, false
	}
	return m, true
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	m, ok := s.currentMember(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	s.revokeMember(m.userID)
	s.mu.Unlock()
	s.closeStreams(m.userID)
	httpx.WriteData(w, http.StatusOK, "logged out", struct{}{})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	m, ok := s.currentMember(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	body := map[string]string{"userId": m.userID, "nickname": m.nickname, "imageUrl": ""}
	s.mu.Unlock()
	httpx.WriteData(w, http.StatusOK, "profile", body)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	m, ok := s.currentMember(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	s.revokeMember(m.userID)
	delete(s.members, m.userID)
	s.mu.Unlock()
	s.closeStreams(m.userID)
	httpx.WriteData(w, http.StatusOK, "deleted", struct{}{})
}

func (s *Server) handleEditNickname(w http.ResponseWriter, r *http.Request) {
	m, ok := s.currentMember(w, r)
	if !ok {
		return
	}
	var req struct {
		Nickname string `json:"nickname"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Nickname == "" {
		httpx.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "nickname is required")
		return
	}
	s.mu.Lock()
	m.nickname = req.Nickname
	s.mu.Unlock()
	httpx.WriteData(w, http.StatusOK, "updated", struct{}{})
}

func (s *Server) handleEditPassword(w http.ResponseWriter, r *http.Request) {
	m, ok := s.currentMember(w, r)
	if !ok {
		return
	}
	var req struct {
		OldPassword      string `json:"oldPassword"`
		NewPassword      string `json:"newPassword"`
		NewPasswordCheck string `json:"newPasswordCheck"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	hash := m.passwordHash
	s.mu.Unlock()
	if bcrypt.CompareHashAndPassword(hash, []byte(req.OldPassword)) != nil {
		httpx.WriteError(w, http.StatusBadRequest, "WRONG_PASSWORD", "current password is incorrect")
		return
	}
	if req.NewPassword == "" || req.NewPassword != req.NewPasswordCheck {
		httpx.WriteError(w, http.StatusBadRequest, "PASSWORD_MISMATCH", "new passwords do not match")
		return
	}

	next, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.MinCost)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to hash password")
		return
	}
	s.mu.Lock()
	m.passwordHash = next
	s.mu.Unlock()
	httpx.WriteData(w, http.StatusOK, "updated", struct{}{})
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	m, ok := s.currentMember(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	points := m.points
	s.mu.Unlock()
	httpx.WriteData(w, http.StatusOK, "points", map[string]int{"point": points})
}

func (s *Server) handleUnchecked(w http.ResponseWriter, r *http.Request) {
	m, ok := s.currentMember(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	list := slices.Clone(m.unchecked)
	s.mu.Unlock()
	if list == nil {
		list = []Notification{}
	}
	httpx.WriteData(w, http.StatusOK, "unchecked notifications", list)
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	m, ok := s.currentMember(w, r)
	if !ok {
		return
	}
	var req struct {
		NotificationID string `json:"notificationId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	before := len(m.unchecked)
	m.unchecked = slices.DeleteFunc(m.unchecked, func(n Notification) bool { return n.ID == req.NotificationID })
	found := len(m.unchecked) != before
	s.mu.Unlock()

	if !found {
		httpx.WriteError(w, http.StatusNotFound, "NOTIFICATION_NOT_FOUND", "notification not found")
		return
	}
	httpx.WriteData(w, http.StatusOK, "acknowledged", struct{}{})
}

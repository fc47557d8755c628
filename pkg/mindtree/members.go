package mindtree

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// SignupRequest is the member registration form.
type SignupRequest struct {
	UserID        string `json:"userId"`
	Password      string `json:"password"`
	PasswordCheck string `json:"passwordCheck"`
	Nickname      string `json:"nickname"`
}

// Profile is the member's own profile.
type Profile struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
	ImageURL string `json:"imageUrl"`
}

// ChangePasswordRequest is the password change form.
type ChangePasswordRequest struct {
	OldPassword      string `json:"oldPassword"`
	NewPassword      string `json:"newPassword"`
	NewPasswordCheck string `json:"newPasswordCheck"`
}

type loginRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID       string `json:"userId"`
	Nickname     string `json:"nickname"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login authenticates the member and starts their session.
func (c *Client) Login(ctx context.Context, userID, password string) (Identity, error) {
	resp, err := c.gateway.Send(ctx, &Request{
		Method:          http.MethodPost,
		Path:            "/members/login",
		Body:            loginRequest{UserID: userID, Password: password},
		SkipAuthRefresh: true,
	})
	if err != nil {
		return Identity{}, err
	}

	var data loginResponse
	if err := resp.Decode(&data); err != nil {
		return Identity{}, &Error{Kind: KindRequest, Op: "POST /members/login", Err: err}
	}
	pair := TokenPair{AccessToken: data.AccessToken, RefreshToken: data.RefreshToken}
	if !pair.Valid() {
		return Identity{}, &Error{Kind: KindRequest, Op: "POST /members/login", Message: "login response is missing a token"}
	}

	if err := c.tokens.Set(ctx, pair); err != nil {
		return Identity{}, err
	}
	if err := c.identity.Login(ctx, data.UserID, data.Nickname); err != nil {
		return Identity{}, err
	}
	c.reset.Rearm()

	c.log.Info("member logged in", "user_id", data.UserID)
	c.startSession(ctx)
	return c.identity.Current(), nil
}

// Signup registers a member and returns the created user id.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (string, error) {
	resp, err := c.gateway.Send(ctx, &Request{
		Method:          http.MethodPost,
		Path:            "/members/signup",
		Body:            req,
		SkipAuthRefresh: true,
	})
	if err != nil {
		return "", err
	}

	var data struct {
		UserID string `json:"userId"`
	}
	if err := resp.Decode(&data); err != nil {
		return "", &Error{Kind: KindRequest, Op: "POST /members/signup", Err: err}
	}
	return data.UserID, nil
}

// CheckUserID reports whether userID is still free to register.
func (c *Client) CheckUserID(ctx context.Context, userID string) (bool, error) {
	resp, err := c.gateway.Send(ctx, &Request{
		Method:          http.MethodGet,
		Path:            "/members/check-id",
		Query:           url.Values{"userId": {userID}},
		SkipAuthRefresh: true,
	})
	if err != nil {
		return false, err
	}

	var data struct {
		Duplicate bool `json:"duplicate"`
	}
	if err := resp.Decode(&data); err != nil {
		return false, &Error{Kind: KindRequest, Op: "GET /members/check-id", Err: err}
	}
	return !data.Duplicate, nil
}

// Profile fetches the logged-in member's profile.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	resp, err := c.gateway.Send(ctx, &Request{Method: http.MethodPost, Path: "/members/me"})
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := resp.Decode(&p); err != nil {
		return nil, &Error{Kind: KindRequest, Op: "POST /members/me", Err: err}
	}
	return &p, nil
}

// UpdateNickname changes the nickname and mirrors it into Identity.
func (c *Client) UpdateNickname(ctx context.Context, nickname string) error {
	_, err := c.gateway.Send(ctx, &Request{
		Method: http.MethodPut,
		Path:   "/members/edit",
		Body:   map[string]string{"nickname": nickname},
	})
	if err != nil {
		return err
	}
	return c.identity.SetNickname(ctx, nickname)
}

// ChangePassword changes the member's password.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	_, err := c.gateway.Send(ctx, &Request{
		Method: http.MethodPut,
		Path:   "/members/edit-password",
		Body:   req,
	})
	return err
}

// Logout tells the backend (best effort) and tears the local session down.
// It fails only when local state could not be cleared.
func (c *Client) Logout(ctx context.Context) error {
	// The backend ends the stream on logout; stop first so the channel
	// does not try to reconnect with revoked credentials.
	c.push.Close()

	if token := c.tokens.Access(); token != "" {
		_, err := c.gateway.Send(ctx, &Request{
			Method:          http.MethodPost,
			Path:            "/members/logout",
			Header:          http.Header{"Authorization": {"Bearer " + token}},
			SkipAuthRefresh: true,
		})
		if err != nil {
			c.log.Warn("logout request failed, clearing local session anyway", "err", err)
		}
	}

	return errors.Join(c.tokens.Clear(ctx), c.identity.Logout(ctx))
}

// DeleteAccount removes the member on the backend and resets the client.
func (c *Client) DeleteAccount(ctx context.Context) error {
	c.push.Close()
	if _, err := c.gateway.Send(ctx, &Request{Method: http.MethodDelete, Path: "/members/me"}); err != nil {
		if !IsSessionFatal(err) {
			if perr := c.StartPush(); perr != nil {
				c.log.Warn("push channel not restarted", "err", perr)
			}
		}
		return err
	}
	c.reset.Reset(ctx, ReasonAccountDeleted)
	return nil
}

// Restore resumes a persisted session. A persisted identity without tokens
// is logged out. Tokens without an identity are completed from the profile.
func (c *Client) Restore(ctx context.Context) (Identity, error) {
	pair, err := c.tokens.Load(ctx)
	if err != nil {
		return Identity{}, err
	}
	id, err := c.identity.Load(ctx)
	if err != nil {
		return Identity{}, err
	}

	if !pair.Valid() {
		if id.LoggedIn {
			c.log.Info("stale identity without tokens, logging out", "user_id", id.UserID)
			if err := c.identity.Logout(ctx); err != nil {
				return Identity{}, err
			}
		}
		return Identity{}, nil
	}

	if !id.LoggedIn {
		p, err := c.Profile(ctx)
		if err != nil {
			return Identity{}, err
		}
		if err := c.identity.Login(ctx, p.UserID, p.Nickname); err != nil {
			return Identity{}, err
		}
	}

	c.reset.Rearm()
	c.startSession(ctx)
	return c.identity.Current(), nil
}

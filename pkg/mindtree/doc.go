/*
Package mindtree is the client SDK for the mind tree emotion-diary backend.
It owns the member's session: bearer tokens, their renewal, the live
notification stream and the teardown when the session can no longer be
recovered.

# Overview

A Client wires together:

  - TokenStore: the access/refresh pair, persisted through a Storage
  - IdentityState: the observable logged-in member
  - Gateway: every backend call goes through Send
  - Renewer: single-flight token renewal
  - RetryQueue: requests parked while a renewal is running
  - PushChannel: the server-sent notification stream
  - ResetCoordinator: one-shot teardown on unrecoverable auth failures

Create a client, restore any persisted session and log in if needed:

	client, err := mindtree.New(mindtree.Config{
		BaseURL:  "https://api.example.com/api/v1",
		Storage:  storage,
		Notifier: mindtree.NotifierFunc(func(n mindtree.Notice) { showToast(n.Message) }),
	})
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := client.Restore(ctx)
	if err != nil {
		return err
	}
	if !id.LoggedIn {
		id, err = client.Login(ctx, "alice", "secret")
	}

# Renewal

When a call is rejected because its access token expired, the Gateway
renews and replays the call once. Concurrent rejections share a single
renewal: calls arriving while one is running are parked in the RetryQueue
and replayed with the new token, or rejected together if renewal fails.
Tokens whose exp is within Config.RenewBefore are renewed before sending.

A renewal failing because the refresh token is no longer accepted ends the
session: the ResetCoordinator clears tokens, identity and storage, shows a
single Notice and calls the Navigator. Any other renewal failure (network,
timeout, 5xx) leaves the session intact and the call fails with
KindRenewalRetryable.

# Push channel

After login the client keeps a text/event-stream connection open. Each
"notification" event is prepended to Notifications(). Transient failures
reconnect with exponential backoff between one and thirty seconds. An
invalid-token signal triggers a renewal; every renewal moves the stream onto
the new token.

# Errors

All errors are *Error values carrying a Kind. Use KindOf to branch on it
and UserMessage to get text fit for display.
*/
package mindtree

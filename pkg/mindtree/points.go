package mindtree

import (
	"context"
	"net/http"
)

// Points returns the member's current point balance.
func (c *Client) Points(ctx context.Context) (int, error) {
	resp, err := c.gateway.Send(ctx, &Request{Method: http.MethodGet, Path: "/points"})
	if err != nil {
		return 0, err
	}

	var body struct {
		Point int `json:"point"`
	}
	if err := resp.Decode(&body); err != nil {
		return 0, &Error{Kind: KindRequest, Op: "GET /points", Err: err}
	}
	return body.Point, nil
}

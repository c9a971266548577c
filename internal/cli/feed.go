package cli

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"empire/internal/feed"
)

// Subscribe opens the city's event stream. It ends when ctx is cancelled,
// the subscription is closed or the connection drops.
func (c *Client) Subscribe(ctx context.Context, accessToken, cityID string) (*feed.Subscription, error) {
	u, err := url.Parse(c.BaseURL + "/v1/cities/" + url.PathEscape(cityID) + "/feed")
	if err != nil {
		return nil, err
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := d.DialContext(ctx, u.String(), http.Header{"Authorization": {"Bearer " + accessToken}})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		if resp != nil {
			return nil, &StatusError{Code: resp.StatusCode, Message: "feed handshake rejected"}
		}
		return nil, err
	}

	out := make(chan feed.Event, 16)
	streamCtx, cancel := context.WithCancel(ctx)
	go func() {
		<-streamCtx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(out)
		defer cancel()
		for {
			var ev feed.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			if !ev.Kind.Valid() {
				continue
			}
			select {
			case out <- ev:
			case <-streamCtx.Done():
				return
			}
		}
	}()
	return feed.NewSubscription(out, cancel), nil
}

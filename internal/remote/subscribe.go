package remote

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Subscribe opens a websocket to the sync server and invokes onEvent for
// every frame pushed for remoteID. It returns a cancel function that closes
// the stream; the reader goroutine also exits when ctx is done or the server
// drops the connection.
func (c *Client) Subscribe(ctx context.Context, remoteID string, onEvent func(Event)) (func(), error) {
	url := wsURL(c.base) + "/ws/simulations/" + remoteID
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.log.Debug("subscription closed", zap.String("remoteId", remoteID), zap.Error(err))
				return
			}
			var ev Event
			if err := json.Unmarshal(data, &ev); err != nil {
				c.log.Warn("malformed subscription frame", zap.Error(err))
				continue
			}
			onEvent(ev)
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { conn.Close() })
	}, nil
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

var ErrChannelClosed = errors.New("channel closed")

const writeTimeout = 3 * time.Second

// Channel owns one persistent connection for one session. There is no
// automatic reconnect or replay: once the reader stops, the channel is dead
// and the session falls back to the lobby.
type Channel struct {
	conn *websocket.Conn
	log  *zap.Logger

	msgs chan json.RawMessage
	done chan struct{}
	err  error
}

// Dial opens the session's channel. The bearer credential rides as a query
// parameter; there is no in-band auth handshake after connect.
func Dial(ctx context.Context, baseURL, sessionID, token string, log *zap.Logger) (*Channel, error) {
	addr := fmt.Sprintf("%s/ws/session/%s?token=%s", baseURL, url.PathEscape(sessionID), url.QueryEscape(token))
	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial session channel: %w", err)
	}

	c := &Channel{
		conn: conn,
		log:  log,
		msgs: make(chan json.RawMessage, 16),
		done: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Send writes one envelope as a whole text frame. Fire-and-forget: no
// acknowledgment is awaited and nothing is retried.
func (c *Channel) Send(ctx context.Context, envelope any) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

// Messages streams inbound frames, one at a time, already checked to be
// valid JSON. The channel closes when the connection dies; check Err after.
func (c *Channel) Messages() <-chan json.RawMessage { return c.msgs }

// Err reports why the reader stopped. Nil for a normal closure.
func (c *Channel) Err() error {
	<-c.done
	return c.err
}

// Close tears the connection down. Leaving the session is the only
// cancellation primitive.
func (c *Channel) Close() {
	_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (c *Channel) readLoop() {
	defer close(c.done)
	defer close(c.msgs)
	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			c.err = err
			return
		}
		// Malformed frames are logged and dropped, never fatal.
		if !json.Valid(data) {
			c.log.Warn("dropping malformed frame", zap.ByteString("frame", data))
			continue
		}
		c.msgs <- json.RawMessage(data)
	}
}

package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	outboxSize   = 16
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// Client is one browser connection scoped to a household. The hub
// fans broadcasts into its outbox; a slow client loses messages
// rather than stalling the hub.
type Client struct {
	hub         *Hub
	conn        *ws.Conn
	householdID int64
	outbox      chan []byte
}

func NewClient(hub *Hub, conn *ws.Conn, householdID int64) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		householdID: householdID,
		outbox:      make(chan []byte, outboxSize),
	}
}

// Run serves the connection until it closes, registering with the hub
// for the duration. The read side only exists to notice disconnects;
// clients never send application data upstream.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := c.conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	c.writeLoop(ctx)
}

// writeLoop drains the outbox onto the wire and pings on an interval
// so half-open connections get reaped. Each write carries its own
// deadline.
func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.outbox:
			if !ok {
				return
			}
			if err := c.write(ctx, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(wctx, ws.MessageText, msg)
}

package server

import (
	"time"

	"cheese-stick/src/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Viewer connection limits
// -----------------------------------------------------------------------------

const (
	// frames carry a base64 chart, so writes get more room than pings
	frameWriteWait  = 5 * time.Second
	viewerIdle      = 60 * time.Second
	pingInterval    = viewerIdle * 9 / 10
	maxCommandBytes = 4 * 1024
	frameBuffer     = 256
)

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// Client is one dashboard viewer. The hub owns frames and closes it when
// the viewer leaves or falls behind.
type Client struct {
	id     string
	hub    *APIServer
	conn   *websocket.Conn
	frames chan *models.MDashboardState
}

func newClient(hub *APIServer, conn *websocket.Conn) *Client {
	return &Client{
		id:     uuid.NewString()[:8],
		hub:    hub,
		conn:   conn,
		frames: make(chan *models.MDashboardState, frameBuffer),
	}
}

// directMessage is a frame for a single viewer, such as a rejected command.
type directMessage struct {
	client *Client
	state  *models.MDashboardState
}

// reply hands st to the hub for this viewer only.
func (c *Client) reply(st *models.MDashboardState) {
	select {
	case c.hub.direct <- directMessage{client: c, state: st}:
	case <-c.hub.quit:
	}
}

// -----------------------------------------------------------------------------
// listen reads viewer commands until the connection drops
// -----------------------------------------------------------------------------

func (c *Client) listen() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
		c.hub.Logger.Info("Viewer %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(maxCommandBytes)
	c.conn.SetReadDeadline(time.Now().Add(viewerIdle))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(viewerIdle))
	})

	for {
		_, command, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("Viewer %s read error: %v", c.id, err)
			}
			return
		}
		c.hub.HandleClientMessage(c, command)
	}
}

// -----------------------------------------------------------------------------
// stream writes queued frames and keeps the connection alive
// -----------------------------------------------------------------------------

func (c *Client) stream() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.frames:
			c.conn.SetWriteDeadline(time.Now().Add(frameWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "dashboard closed the stream"))
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				c.hub.Logger.Info("Viewer %s write error: %v", c.id, err)
				return
			}

		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(frameWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

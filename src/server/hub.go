package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cheese-stick/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop. It alone touches s.clients and
// closes client frame channels.
func (s *APIServer) handleWebsockets() {
	for {
		select {
		case <-s.quit:
			for client := range s.clients {
				s.drop(client)
			}
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connections.Store(int64(len(s.clients)))
			s.Logger.Info("Viewer %s connected (%d watching)", client.id, len(s.clients))

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				s.drop(client)
			}

		case msg := <-s.direct:
			if _, ok := s.clients[msg.client]; ok {
				s.deliver(msg.client, msg.state)
			}

		case frame := <-s.broadcast:
			for client := range s.clients {
				s.deliver(client, frame)
			}
		}
	}
}

// deliver queues frame for client, dropping a viewer that stopped reading.
func (s *APIServer) deliver(client *Client, frame *models.MDashboardState) {
	select {
	case client.frames <- frame:
	default:
		s.Logger.Warning("Viewer %s is not keeping up, disconnecting", client.id)
		s.drop(client)
	}
}

func (s *APIServer) drop(client *Client) {
	delete(s.clients, client)
	close(client.frames)
	s.connections.Store(int64(len(s.clients)))
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues a frame for every client. Frames are dropped when the
// queue is full.
func (s *APIServer) Broadcast(state *models.MDashboardState) {
	select {
	case s.broadcast <- state:
	default:
		s.Logger.Warning("Broadcast queue full, dropping %s frame", state.Type)
	}
}

// UpdateLatest records the frame new clients receive when the dashboard
// cannot answer a snapshot. The controller never passes error states.
func (s *APIServer) UpdateLatest(state *models.MDashboardState) {
	s.stateMutex.Lock()
	s.latestState = state
	s.stateMutex.Unlock()
}

// initialState is what a client sees on connect: the dashboard snapshot,
// or the last broadcast frame when the dashboard is unavailable.
func (s *APIServer) initialState() *models.MDashboardState {
	if s.Dashboard != nil {
		ctx, cancel := context.WithTimeout(s.ctx, commandTimeout)
		defer cancel()
		if st, err := s.Dashboard.Snapshot(ctx); err == nil {
			return st
		}
	}

	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	if s.latestState == nil {
		return nil
	}
	st := *s.latestState
	st.Type = models.MsgInitial
	return &st
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s, conn)
	if st := s.initialState(); st != nil {
		client.frames <- st
	}

	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}

	go client.stream()
	go client.listen()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a dashboard command. Failures are reported to
// the sender only.
func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v", err)
		client.reply(errorState("invalid command: " + err.Error()))
		return
	}
	if s.Dashboard == nil {
		client.reply(errorState("dashboard not running"))
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, commandTimeout)
	defer cancel()
	if err := s.Dashboard.HandleCommand(ctx, cmd); err != nil {
		s.Logger.Debug("Command %q rejected: %v", cmd.Command, err)
		client.reply(errorState(err.Error()))
	}
}

func errorState(msg string) *models.MDashboardState {
	return &models.MDashboardState{
		Type:      models.MsgError,
		Error:     msg,
		Timestamp: time.Now().Unix(),
	}
}

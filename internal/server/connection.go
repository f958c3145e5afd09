package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/protocol"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	sendBuffer = 256
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrNotSeated        = errors.New("join a table first")
	ErrAlreadySeated    = errors.New("already seated at a table")
	ErrUnknownTable     = errors.New("unknown table")
)

// stateRequest asks the write pump for a fresh view of the connection's
// table. The view is taken when the message is written, never from inside
// an event callback.
type stateRequest struct{}

// Connection is one websocket client. A connection may hold one seat.
type Connection struct {
	ID     string
	conn   *websocket.Conn
	codec  protocol.Codec
	server *Server
	logger zerolog.Logger

	send      chan any
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.RWMutex
	table  *TableInstance
	player string
}

// NewConnection wraps an upgraded websocket
func NewConnection(conn *websocket.Conn, codec protocol.Codec, server *Server) *Connection {
	id := uuid.NewString()
	return &Connection{
		ID:     id,
		conn:   conn,
		codec:  codec,
		server: server,
		logger: server.logger.With().Str("conn", id).Str("format", codec.Name()).Logger(),
		send:   make(chan any, sendBuffer),
		done:   make(chan struct{}),
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Done is closed once the connection has shut down
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// Send queues a message for the client without blocking. A client that
// cannot keep up is disconnected.
func (c *Connection) Send(msg any) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		c.logger.Warn().Msg("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// Seat returns the table and player this connection is seated as
func (c *Connection) Seat() (*TableInstance, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table, c.player
}

func (c *Connection) setSeat(table *TableInstance, player string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = table
	c.player = player
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() {
		c.server.unregister(c)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("Unexpected WebSocket close error")
			}
			return
		}
		c.handleFrame(data)
	}
}

// writePump writes queued messages and keeps the connection alive with pings
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	frameType := websocket.TextMessage
	if c.codec.Binary() {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case item := <-c.send:
			msg := item
			if _, ok := item.(stateRequest); ok {
				if msg = c.stateMessage(); msg == nil {
					continue
				}
			}
			data, err := c.codec.Marshal(msg)
			if err != nil {
				c.logger.Error().Err(err).Msg("Failed to encode message")
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(frameType, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (c *Connection) stateMessage() any {
	table, player := c.Seat()
	if table == nil {
		return nil
	}
	return protocol.NewState(table.Table.ViewFor(player))
}

// handleFrame decodes, validates and dispatches one client message
func (c *Connection) handleFrame(data []byte) {
	js, err := c.codec.ToJSON(data)
	if err == nil {
		var msg protocol.ClientMessage
		if msg, err = c.server.validator.DecodeClient(js); err == nil {
			err = c.handleMessage(msg)
		}
	}
	if err != nil {
		c.logger.Debug().Err(err).Msg("Request rejected")
		_ = c.Send(errorMessage(err))
	}
}

func errorMessage(err error) *protocol.Error {
	msg := protocol.NewError(err)
	switch {
	case errors.Is(err, ErrNotSeated):
		msg.Code = "not_seated"
	case errors.Is(err, ErrAlreadySeated):
		msg.Code = "already_seated"
	case errors.Is(err, ErrUnknownTable):
		msg.Code = "unknown_table"
	}
	return msg
}

func (c *Connection) handleMessage(msg protocol.ClientMessage) error {
	c.logger.Debug().Str("type", msg.Type).Msg("Received message")

	if msg.Type == protocol.TypeJoin {
		return c.join(msg.Table, msg.Player)
	}

	table, player := c.Seat()
	if table == nil {
		return ErrNotSeated
	}

	switch msg.Type {
	case protocol.TypeStart:
		return table.Table.StartHand()

	case protocol.TypeAction:
		kind, err := game.ParseActionKind(msg.Kind)
		if err != nil {
			return fmt.Errorf("%w: %v", protocol.ErrInvalidMessage, err)
		}
		if msg.Turn != 0 {
			return table.Table.HandleActionAt(msg.Turn, player, kind, msg.Amount)
		}
		return table.Table.HandleAction(player, kind, msg.Amount)

	case protocol.TypeLeave:
		if err := table.Table.RemoveSeat(player); err != nil {
			return err
		}
		c.setSeat(nil, "")
		c.logger.Info().Str("table", table.ID).Str("player", player).Msg("Player left")
		return nil

	case protocol.TypeState:
		return c.Send(stateRequest{})

	default:
		return protocol.ErrUnknownMessageType
	}
}

func (c *Connection) join(tableID, player string) error {
	if t, _ := c.Seat(); t != nil {
		return ErrAlreadySeated
	}
	instance, ok := c.server.tables.Get(tableID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, tableID)
	}
	if err := instance.Table.AddSeat(player); err != nil {
		return err
	}
	c.setSeat(instance, player)

	seat, _ := instance.Table.Seat(player)
	c.logger.Info().Str("table", tableID).Str("player", player).Int("seat", seat.Index).Msg("Player joined")
	if err := c.Send(&protocol.Joined{
		Type:         protocol.TypeJoined,
		ConnectionID: c.ID,
		Table:        tableID,
		Player:       player,
		Seat:         seat.Index,
	}); err != nil {
		return err
	}
	return c.Send(stateRequest{})
}

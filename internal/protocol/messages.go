// Package protocol defines the messages exchanged with table clients and the
// codecs that put them on the wire.
package protocol

import (
	"errors"
	"time"

	"github.com/lox/holdemtable/internal/game"
)

// Client -> Server
const (
	TypeJoin   = "join"
	TypeStart  = "start"
	TypeAction = "action"
	TypeLeave  = "leave"
	TypeState  = "state"
)

// Server -> Client
const (
	TypeJoined = "joined"
	TypeEvent  = "event"
	TypeError  = "error"
	// TypeState is reused for the server's reply
)

// ErrUnknownMessageType is returned for a message type the server does not handle
var ErrUnknownMessageType = errors.New("unknown message type")

// ClientMessage is every message a client may send. Only the fields relevant
// to Type are set.
type ClientMessage struct {
	Type   string `json:"type"`
	Table  string `json:"table,omitempty"`  // join
	Player string `json:"player,omitempty"` // join
	Kind   string `json:"kind,omitempty"`   // action
	Amount int    `json:"amount,omitempty"` // action: bet/raise increment
	Turn   uint64 `json:"turn,omitempty"`   // action: rejected if the turn moved on
}

// Joined confirms a seat at a table
type Joined struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connection_id"`
	Table        string `json:"table"`
	Player       string `json:"player"`
	Seat         int    `json:"seat"`
}

// Event carries one table event to every connection at the table
type Event struct {
	Type  string    `json:"type"`
	Event string    `json:"event"`
	At    time.Time `json:"at"`
	Table string    `json:"table"`
	Data  any       `json:"data"`
}

// State is a table view from the receiving player's point of view
type State struct {
	Type  string         `json:"type"`
	State game.TableView `json:"state"`
}

// Error reports a rejected request
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent wraps a table event for the wire
func NewEvent(e game.GameEvent) *Event {
	return &Event{
		Type:  TypeEvent,
		Event: e.EventType().String(),
		At:    e.Timestamp().UTC(),
		Table: e.TableID(),
		Data:  e,
	}
}

// NewState wraps a table view for the wire
func NewState(view game.TableView) *State {
	return &State{Type: TypeState, State: view}
}

// NewError builds an error message, deriving the code from err
func NewError(err error) *Error {
	return &Error{Type: TypeError, Code: ErrorCode(err), Message: err.Error()}
}

// ErrorCode maps an error to the stable code sent to clients
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, game.ErrStaleTurn):
		return "stale_turn"
	case errors.Is(err, game.ErrRoundInactive):
		return "round_inactive"
	case errors.Is(err, game.ErrSeatFolded):
		return "seat_folded"
	case errors.Is(err, game.ErrBelowMinimum):
		return "below_minimum"
	case errors.Is(err, game.ErrInsufficientChips):
		return "insufficient_chips"
	case errors.Is(err, game.ErrIllegalAction):
		return "illegal_action"
	case errors.Is(err, game.ErrUnknownPlayer):
		return "unknown_player"
	case errors.Is(err, game.ErrInvalidAction):
		return "invalid_action"
	case errors.Is(err, game.ErrTableFull):
		return "table_full"
	case errors.Is(err, game.ErrHandInProgress):
		return "hand_in_progress"
	case errors.Is(err, game.ErrNoHandInProgress):
		return "no_hand_in_progress"
	case errors.Is(err, game.ErrTooFewSeats):
		return "too_few_seats"
	case errors.Is(err, game.ErrDuplicatePlayer):
		return "duplicate_player"
	case errors.Is(err, game.ErrStructural):
		return "table_error"
	case errors.Is(err, ErrUnknownMessageType):
		return "unknown_message"
	case errors.Is(err, ErrInvalidMessage):
		return "invalid_message"
	default:
		return "internal"
	}
}

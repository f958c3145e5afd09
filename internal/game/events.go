package game

import (
	"sync"
	"time"

	"github.com/lox/holdemtable/internal/deck"
)

// EventType represents a table event type with type safety
type EventType string

// EventType constants for table events, published in the order they occur
const (
	EventTypeHandStarted    EventType = "hand_started"
	EventTypeBlindsPosted   EventType = "blinds_posted"
	EventTypeTurnStarted    EventType = "turn_started"
	EventTypeActionApplied  EventType = "action_applied"
	EventTypeStreetRevealed EventType = "street_revealed"
	EventTypeHandWon        EventType = "hand_won"
	EventTypeHandAborted    EventType = "hand_aborted"
	EventTypeDealerRotated  EventType = "dealer_rotated"
	EventTypeSessionOver    EventType = "session_over"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// GameEvent represents anything that happens at a table
type GameEvent interface {
	EventType() EventType
	Timestamp() time.Time
	TableID() string
}

// eventHeader is embedded by every event
type eventHeader struct {
	Table     string `json:"table_id"`
	Hand      string `json:"hand_id,omitempty"`
	timestamp time.Time
}

func (h eventHeader) TableID() string      { return h.Table }
func (h eventHeader) HandID() string       { return h.Hand }
func (h eventHeader) Timestamp() time.Time { return h.timestamp }

// HandStartedEvent is published once hole cards are dealt
type HandStartedEvent struct {
	eventHeader
	HandNumber int        `json:"hand_number"`
	Dealer     int        `json:"dealer"`
	Seats      []SeatView `json:"seats"`
}

func (e HandStartedEvent) EventType() EventType { return EventTypeHandStarted }

// BlindsPostedEvent is published after the forced bets are in the pot
type BlindsPostedEvent struct {
	eventHeader
	SmallBlindSeat int `json:"small_blind_seat"`
	BigBlindSeat   int `json:"big_blind_seat"`
	SmallBlind     int `json:"small_blind"`
	BigBlind       int `json:"big_blind"`
	Pot            int `json:"pot"`
}

func (e BlindsPostedEvent) EventType() EventType { return EventTypeBlindsPosted }

// TurnStartedEvent is published whenever a seat becomes the current actor.
// Turn increases by one for every turn at the table.
type TurnStartedEvent struct {
	eventHeader
	Turn       uint64 `json:"turn"`
	Seat       int    `json:"seat"`
	PlayerID   string `json:"player_id"`
	Street     Street `json:"street"`
	CurrentBet int    `json:"current_bet"`
	ToCall     int    `json:"to_call"`
}

func (e TurnStartedEvent) EventType() EventType { return EventTypeTurnStarted }

// ActionAppliedEvent is published when a player's action is accepted
type ActionAppliedEvent struct {
	eventHeader
	Seat     int        `json:"seat"`
	PlayerID string     `json:"player_id"`
	Street   Street     `json:"street"`
	Action   ActionKind `json:"action"`
	Amount   int        `json:"amount"` // chips moved into the pot
	SeatBet  int        `json:"seat_bet"`
	Chips    int        `json:"chips"`
	Pot      int        `json:"pot"`
	AllIn    bool       `json:"all_in"`
}

func (e ActionAppliedEvent) EventType() EventType { return EventTypeActionApplied }

// StreetRevealedEvent is published when community cards are dealt
type StreetRevealedEvent struct {
	eventHeader
	Street Street      `json:"street"`
	Cards  []deck.Card `json:"cards"`
	Board  []deck.Card `json:"board"`
	Pot    int         `json:"pot"`
}

func (e StreetRevealedEvent) EventType() EventType { return EventTypeStreetRevealed }

// HandWonEvent is published when the pot is awarded
type HandWonEvent struct {
	eventHeader
	Seat      int                    `json:"seat"`
	PlayerID  string                 `json:"player_id"`
	Amount    int                    `json:"amount"`
	Reason    WinReason              `json:"reason"`
	Policy    string                 `json:"policy,omitempty"`
	Board     []deck.Card            `json:"board"`
	HoleCards map[string][]deck.Card `json:"hole_cards,omitempty"` // shown at showdown only
	Seats     []SeatView             `json:"seats"`
}

func (e HandWonEvent) EventType() EventType { return EventTypeHandWon }

// HandAbortedEvent is published when a hand ends without a winner and every
// seat gets its commitment back.
type HandAbortedEvent struct {
	eventHeader
	Reason  string         `json:"reason"`
	Refunds map[string]int `json:"refunds"`
}

func (e HandAbortedEvent) EventType() EventType { return EventTypeHandAborted }

// DealerRotatedEvent is published after a concluded hand moves the button
type DealerRotatedEvent struct {
	eventHeader
	Dealer   int    `json:"dealer"`
	PlayerID string `json:"player_id"`
}

func (e DealerRotatedEvent) EventType() EventType { return EventTypeDealerRotated }

// SessionOverEvent is published when fewer than two seats have chips
type SessionOverEvent struct {
	eventHeader
	Remaining []SeatView `json:"remaining"`
}

func (e SessionOverEvent) EventType() EventType { return EventTypeSessionOver }

// EventSubscriber can subscribe to table events. OnEvent runs after the table
// has released its lock, so queries and rejected actions never wait on it,
// but a slow subscriber delays delivery of later events. It must not act on
// the same table synchronously; hand the work to another goroutine instead.
type EventSubscriber interface {
	OnEvent(event GameEvent)
}

// SubscriberFunc adapts a plain function to EventSubscriber
type SubscriberFunc func(GameEvent)

func (f SubscriberFunc) OnEvent(event GameEvent) { f(event) }

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event GameEvent)
}

// SimpleEventBus is a basic in-memory event bus implementation, safe for concurrent use
type SimpleEventBus struct {
	mu          sync.RWMutex
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *SimpleEventBus {
	return &SimpleEventBus{
		subscribers: make([]EventSubscriber, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes a subscriber from receiving events. Func subscribers
// cannot be compared and are never removed.
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	if _, ok := subscriber.(SubscriberFunc); ok {
		return
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, sub := range bus.subscribers {
		if _, ok := sub.(SubscriberFunc); ok {
			continue
		}
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i], bus.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers in subscription order
func (bus *SimpleEventBus) Publish(event GameEvent) {
	bus.mu.RLock()
	subs := append([]EventSubscriber(nil), bus.subscribers...)
	bus.mu.RUnlock()

	for _, subscriber := range subs {
		subscriber.OnEvent(event)
	}
}

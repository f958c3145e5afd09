package game

import (
	rand "math/rand/v2"

	"github.com/coder/quartz"
	"github.com/lox/holdemtable/internal/deck"
	"github.com/rs/zerolog"
)

const (
	MinSeats = 2
	MaxSeats = 5

	DefaultSmallBlind    = 10
	DefaultBigBlind      = 20
	DefaultStartingStack = 1000
)

// TableOption configures a Table during creation.
type TableOption func(*tableConfig)

// tableConfig holds all configuration for creating a table.
type tableConfig struct {
	smallBlind    int
	bigBlind      int
	startingStack int
	maxSeats      int
	autoContinue  bool

	logger   zerolog.Logger
	clock    quartz.Clock
	bus      EventBus
	rng      *rand.Rand
	deck     *deck.Deck     // If provided, overrides rng for dealing
	showdown ShowdownPolicy // Default: FirstAfterDealer
}

func defaultTableConfig() *tableConfig {
	return &tableConfig{
		smallBlind:    DefaultSmallBlind,
		bigBlind:      DefaultBigBlind,
		startingStack: DefaultStartingStack,
		maxSeats:      MaxSeats,
		autoContinue:  true,
		logger:        zerolog.Nop(),
		clock:         quartz.NewReal(),
		showdown:      FirstAfterDealer{},
	}
}

// WithBlinds sets the forced bets. The big blind is also the minimum bet and
// the minimum raise increment.
func WithBlinds(small, big int) TableOption {
	return func(c *tableConfig) {
		c.smallBlind = small
		c.bigBlind = big
	}
}

// WithStartingStack sets the chips every seat receives when the session starts
// and when a player joins a running session. Default is 1000.
func WithStartingStack(chips int) TableOption {
	return func(c *tableConfig) {
		c.startingStack = chips
	}
}

// WithMaxSeats lowers the seat cap. Values outside [MinSeats, MaxSeats] are ignored.
func WithMaxSeats(n int) TableOption {
	return func(c *tableConfig) {
		if n >= MinSeats && n <= MaxSeats {
			c.maxSeats = n
		}
	}
}

// WithAutoContinue controls whether the next hand starts as soon as one
// concludes. When disabled the host calls StartHand between hands.
func WithAutoContinue(enabled bool) TableOption {
	return func(c *tableConfig) {
		c.autoContinue = enabled
	}
}

// WithLogger attaches a logger. Tables log nothing by default.
func WithLogger(logger zerolog.Logger) TableOption {
	return func(c *tableConfig) {
		c.logger = logger
	}
}

// WithClock sets the clock used to timestamp events.
//
// Example usage:
//
//	mClock := quartz.NewMock(t)
//	tbl := NewTable("t1", WithClock(mClock))
func WithClock(clock quartz.Clock) TableOption {
	return func(c *tableConfig) {
		c.clock = clock
	}
}

// WithEventBus publishes table events on an existing bus instead of a private one.
func WithEventBus(bus EventBus) TableOption {
	return func(c *tableConfig) {
		c.bus = bus
	}
}

// WithRNG sets the random source used to shuffle the deck.
func WithRNG(rng *rand.Rand) TableOption {
	return func(c *tableConfig) {
		c.rng = rng
	}
}

// WithDeck sets a specific deck. It is reset before every hand, so an ordered
// deck from deck.NewOrdered replays the same cards each hand.
func WithDeck(d *deck.Deck) TableOption {
	return func(c *tableConfig) {
		c.deck = d
	}
}

// WithShowdownPolicy selects how the winner is chosen when a hand reaches showdown.
func WithShowdownPolicy(policy ShowdownPolicy) TableOption {
	return func(c *tableConfig) {
		if policy != nil {
			c.showdown = policy
		}
	}
}

package game

import (
	"sync"

	"github.com/google/uuid"
	"github.com/lox/holdemtable/internal/deck"
	"github.com/rs/zerolog"
)

// Table runs hands for up to five seats. Every exported method is safe for
// concurrent use; state changes are serialized and the resulting events are
// published in order once the change is complete.
type Table struct {
	mu sync.Mutex

	// publishMu and published order event delivery; batches is guarded by mu
	publishMu   sync.Mutex
	publishCond *sync.Cond
	batches     uint64
	published   uint64

	id     string
	cfg    *tableConfig
	logger zerolog.Logger
	bus    EventBus
	deck   *deck.Deck

	hand   Hand
	index  map[string]int
	phase  Phase
	seeded bool
	turn   uint64

	blinds   BlindManager
	betting  BettingRound
	actions  ActionManager
	revealer CardRevealer

	pending []GameEvent
}

// NewTable creates an empty table. An empty id is replaced by a random one.
//
// Example usage:
//
//	tbl := game.NewTable("main",
//	    game.WithBlinds(10, 20),
//	    game.WithRNG(randutil.New(42)),
//	    game.WithAutoContinue(false))
//	tbl.AddSeat("alice")
//	tbl.AddSeat("bob")
//	tbl.StartHand()
func NewTable(id string, opts ...TableOption) *Table {
	cfg := defaultTableConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if id == "" {
		id = uuid.NewString()
	}

	bus := cfg.bus
	if bus == nil {
		bus = NewEventBus()
	}
	d := cfg.deck
	if d == nil {
		d = deck.New(cfg.rng)
	}

	t := &Table{
		id:      id,
		cfg:     cfg,
		logger:  cfg.logger.With().Str("table", id).Logger(),
		bus:     bus,
		deck:    d,
		index:   make(map[string]int),
		blinds:  BlindManager{SmallBlind: cfg.smallBlind, BigBlind: cfg.bigBlind},
		actions: ActionManager{MinBet: cfg.bigBlind},
		betting: BettingRound{CurrentPlayer: -1, FirstToAct: -1},
	}
	t.publishCond = sync.NewCond(&t.publishMu)
	return t
}

// Subscribe registers for this table's events
func (t *Table) Subscribe(sub EventSubscriber) {
	t.bus.Subscribe(sub)
}

// Unsubscribe stops delivering events to sub
func (t *Table) Unsubscribe(sub EventSubscriber) {
	t.bus.Unsubscribe(sub)
}

// update runs fn under the table lock and then publishes whatever events it
// queued. Each batch takes a sequence number under the lock and is delivered
// only after every earlier batch, so the lock is never held while subscribers
// run. Updates that queue nothing return without waiting.
func (t *Table) update(fn func() error) error {
	t.mu.Lock()
	err := fn()
	events := t.pending
	t.pending = nil
	var seq uint64
	if len(events) > 0 {
		t.batches++
		seq = t.batches
	}
	t.mu.Unlock()

	if seq > 0 {
		t.publish(seq, events)
	}
	return err
}

func (t *Table) publish(seq uint64, events []GameEvent) {
	t.publishMu.Lock()
	for t.published+1 != seq {
		t.publishCond.Wait()
	}
	t.publishMu.Unlock()

	for _, e := range events {
		t.bus.Publish(e)
	}

	t.publishMu.Lock()
	t.published = seq
	t.publishCond.Broadcast()
	t.publishMu.Unlock()
}

func (t *Table) header() eventHeader {
	return eventHeader{Table: t.id, Hand: t.hand.ID, timestamp: t.cfg.clock.Now()}
}

func (t *Table) emit(e GameEvent) {
	t.pending = append(t.pending, e)
}

// AddSeat seats a player in the next free position. Before the first hand
// seats are empty and get the starting stack when the session starts; later
// joiners get it immediately.
func (t *Table) AddSeat(playerID string) error {
	return t.update(func() error {
		if playerID == "" {
			return ErrInvalidPlayer
		}
		if t.phase == HandInProgress {
			return ErrHandInProgress
		}
		if _, ok := t.index[playerID]; ok {
			return ErrDuplicatePlayer
		}
		if len(t.hand.Seats) >= t.cfg.maxSeats {
			return ErrTableFull
		}

		seat := &Seat{PlayerID: playerID}
		if t.seeded {
			seat.Chips = t.cfg.startingStack
		}
		t.index[playerID] = len(t.hand.Seats)
		t.hand.Seats = append(t.hand.Seats, seat)
		t.reopenSession()

		t.logger.Info().
			Str("player", playerID).
			Int("seat", t.index[playerID]).
			Int("chips", seat.Chips).
			Msg("Player seated")
		return nil
	})
}

// RemoveSeat takes a player off the table between hands. Their chips leave with them.
func (t *Table) RemoveSeat(playerID string) error {
	return t.update(func() error {
		idx, ok := t.index[playerID]
		if !ok {
			return ErrUnknownPlayer
		}
		if t.phase == HandInProgress {
			return ErrHandInProgress
		}

		seats := t.hand.Seats
		t.hand.Seats = append(seats[:idx:idx], seats[idx+1:]...)
		t.reindex()
		if idx < t.hand.Dealer {
			t.hand.Dealer--
		}
		if t.hand.Dealer >= len(t.hand.Seats) {
			t.hand.Dealer = 0
		}

		t.logger.Info().Str("player", playerID).Msg("Player left")
		return nil
	})
}

// Rebuy adds chips to a seat between hands
func (t *Table) Rebuy(playerID string, chips int) error {
	return t.update(func() error {
		idx, ok := t.index[playerID]
		if !ok {
			return ErrUnknownPlayer
		}
		if chips <= 0 {
			return ErrInvalidAmount
		}
		if t.phase == HandInProgress {
			return ErrHandInProgress
		}

		t.hand.Seats[idx].Chips += chips
		t.reopenSession()
		t.logger.Info().Str("player", playerID).Int("chips", chips).Msg("Rebuy")
		return nil
	})
}

func (t *Table) reindex() {
	clear(t.index)
	for i, s := range t.hand.Seats {
		t.index[s.PlayerID] = i
	}
}

// reopenSession lets a finished session continue once two seats have chips again
func (t *Table) reopenSession() {
	if t.phase == SessionComplete && countSeats(t.hand.Seats, isFunded) >= MinSeats {
		t.phase = HandComplete
	}
}

// StartHand seeds stacks on first use, shuffles, deals, posts blinds and opens
// preflop betting.
func (t *Table) StartHand() error {
	return t.update(func() error {
		if t.phase == HandInProgress {
			return ErrHandInProgress
		}
		if len(t.hand.Seats) < MinSeats {
			return ErrTooFewSeats
		}

		funded := countSeats(t.hand.Seats, isFunded)
		if !t.seeded && t.cfg.startingStack > 0 {
			funded = len(t.hand.Seats)
		}
		if funded < MinSeats {
			return ErrTooFewSeats
		}

		if !t.seeded {
			for _, s := range t.hand.Seats {
				s.Chips += t.cfg.startingStack
			}
			t.seeded = true
		}

		t.beginHand()
		return nil
	})
}

// EndHand aborts the hand in progress and refunds every seat's commitment
func (t *Table) EndHand() error {
	return t.update(func() error {
		if t.phase != HandInProgress {
			return ErrNoHandInProgress
		}
		t.abortHand("ended by host")
		return nil
	})
}

// HandleAction applies a decision from the current actor. A rejected action
// returns an *ActionError and leaves the table unchanged.
func (t *Table) HandleAction(playerID string, kind ActionKind, amount int) error {
	return t.update(func() error {
		return t.handleAction(playerID, kind, amount)
	})
}

// HandleActionAt is HandleAction guarded by the turn number from a
// TurnStartedEvent. Timers use it so a late decision cannot land on a later turn.
func (t *Table) HandleActionAt(turn uint64, playerID string, kind ActionKind, amount int) error {
	return t.update(func() error {
		if turn != t.turn {
			return &ActionError{PlayerID: playerID, Kind: kind, Amount: amount, Reason: ErrStaleTurn}
		}
		return t.handleAction(playerID, kind, amount)
	})
}

func (t *Table) handleAction(playerID string, kind ActionKind, amount int) error {
	idx, ok := t.index[playerID]
	if !ok {
		return &ActionError{PlayerID: playerID, Kind: kind, Amount: amount, Reason: ErrUnknownPlayer}
	}
	if t.phase != HandInProgress {
		return &ActionError{PlayerID: playerID, Kind: kind, Amount: amount, Reason: ErrRoundInactive}
	}

	h := &t.hand
	seat := h.Seats[idx]
	result, err := t.actions.HandleAction(&t.betting, idx, seat, kind, amount)
	if err != nil {
		t.logger.Debug().Err(err).Str("player", playerID).Stringer("action", kind).Int("amount", amount).Msg("Action rejected")
		return &ActionError{PlayerID: playerID, Kind: kind, Amount: amount, Reason: err}
	}

	h.Pot += result.PotIncrease
	if h.Street == Preflop && idx == t.betting.BigBlindIndex {
		t.betting.BigBlindHasOption = false
	}
	if result.NewSeatBet > t.betting.CurrentBet {
		t.betting.raise(idx, result.NewSeatBet)
	}

	t.logger.Debug().
		Str("player", playerID).
		Stringer("street", h.Street).
		Stringer("action", kind).
		Int("amount", result.PotIncrease).
		Int("pot", h.Pot).
		Msg("Action applied")
	t.emit(ActionAppliedEvent{
		eventHeader: t.header(),
		Seat:        idx,
		PlayerID:    playerID,
		Street:      h.Street,
		Action:      kind,
		Amount:      result.PotIncrease,
		SeatBet:     seat.CurrentBet,
		Chips:       seat.Chips,
		Pot:         h.Pot,
		AllIn:       result.AllIn,
	})

	if countSeats(h.Seats, (*Seat).InHand) == 1 {
		t.betting.close()
		collectBets(h.Seats)
		t.award(nextSeat(h.Seats, -1, (*Seat).InHand), WinByFold)
		return nil
	}

	if t.betting.Advance(h.Seats, idx) {
		t.closeStreet()
	} else {
		t.startTurn()
	}
	return nil
}

// beginHand resets per-hand state, deals and opens preflop
func (t *Table) beginHand() {
	h := &t.hand
	h.Number++
	h.ID = newHandID()
	h.Pot = 0
	h.Board = nil
	h.Street = Preflop
	for _, s := range h.Seats {
		s.resetForHand()
	}
	if h.Seats[h.Dealer].SittingOut {
		h.Dealer = nextSeat(h.Seats, h.Dealer, (*Seat).InHand)
	}
	t.phase = HandInProgress

	t.deck.Reset()
	if err := h.dealHoleCards(t.deck); err != nil {
		t.abortHand(err.Error())
		return
	}

	t.logger.Info().
		Str("hand", h.ID).
		Int("number", h.Number).
		Int("dealer", h.Dealer).
		Msg("Hand started")
	t.emit(HandStartedEvent{
		eventHeader: t.header(),
		HandNumber:  h.Number,
		Dealer:      h.Dealer,
		Seats:       t.seatViews(false),
	})

	sb, bb := blindSeats(h.Seats, h.Dealer)
	h.SmallBlindIndex, h.BigBlindIndex = sb, bb
	h.Pot += t.blinds.PostBlinds(h.Seats[sb], h.Seats[bb])
	t.emit(BlindsPostedEvent{
		eventHeader:    t.header(),
		SmallBlindSeat: sb,
		BigBlindSeat:   bb,
		SmallBlind:     h.Seats[sb].CurrentBet,
		BigBlind:       h.Seats[bb].CurrentBet,
		Pot:            h.Pot,
	})

	t.betting = BettingRound{
		BigBlindIndex:     bb,
		BigBlindHasOption: h.Seats[bb].CanAct(),
	}
	currentBet := max(h.Seats[sb].CurrentBet, h.Seats[bb].CurrentBet)
	t.betting.StartBettingRound(Preflop, currentBet, nextSeat(h.Seats, bb, (*Seat).CanAct))
	t.openedStreet()
}

// openedStreet either prompts the first actor or, when no decision is
// possible, runs the board out.
func (t *Table) openedStreet() {
	if t.betting.closesImmediately(t.hand.Seats) {
		t.betting.close()
		t.closeStreet()
		return
	}
	t.startTurn()
}

func (t *Table) startTurn() {
	t.turn++
	seat := t.hand.Seats[t.betting.CurrentPlayer]
	t.emit(TurnStartedEvent{
		eventHeader: t.header(),
		Turn:        t.turn,
		Seat:        t.betting.CurrentPlayer,
		PlayerID:    seat.PlayerID,
		Street:      t.hand.Street,
		CurrentBet:  t.betting.CurrentBet,
		ToCall:      t.betting.CurrentBet - seat.CurrentBet,
	})
}

// closeStreet collects bets and moves to the next street or to showdown
func (t *Table) closeStreet() {
	h := &t.hand
	collectBets(h.Seats)

	cards, err := t.revealer.RevealNext(h, t.deck)
	if err != nil {
		t.abortHand(err.Error())
		return
	}
	if h.Street == Showdown {
		t.showdown()
		return
	}

	t.logger.Debug().Stringer("street", h.Street).Str("board", deck.FormatCards(h.Board)).Msg("Street revealed")
	t.emit(StreetRevealedEvent{
		eventHeader: t.header(),
		Street:      h.Street,
		Cards:       cards,
		Board:       append([]deck.Card(nil), h.Board...),
		Pot:         h.Pot,
	})

	t.betting.StartBettingRound(h.Street, 0, nextSeat(h.Seats, h.Dealer, (*Seat).CanAct))
	t.openedStreet()
}

func (t *Table) showdown() {
	winner := t.cfg.showdown.Winner(t.hand.Seats, t.hand.Board, t.hand.Dealer)
	t.award(winner, WinByShowdown)
}

// award pays the whole pot to one seat and finishes the hand
func (t *Table) award(winner int, reason WinReason) {
	h := &t.hand
	seat := h.Seats[winner]
	amount := h.Pot
	seat.Chips += amount
	h.Pot = 0
	t.betting.close()

	e := HandWonEvent{
		eventHeader: t.header(),
		Seat:        winner,
		PlayerID:    seat.PlayerID,
		Amount:      amount,
		Reason:      reason,
		Board:       append([]deck.Card(nil), h.Board...),
		Seats:       t.seatViews(false),
	}
	if reason == WinByShowdown {
		e.Policy = t.cfg.showdown.Name()
		e.HoleCards = make(map[string][]deck.Card)
		for _, s := range h.Seats {
			if s.InHand() {
				e.HoleCards[s.PlayerID] = append([]deck.Card(nil), s.HoleCards...)
			}
		}
	}

	t.logger.Info().
		Str("hand", h.ID).
		Str("winner", seat.PlayerID).
		Int("amount", amount).
		Str("reason", string(reason)).
		Msg("Hand won")
	t.emit(e)
	t.finishHand()
}

// finishHand moves the button and, when enabled, deals the next hand
func (t *Table) finishHand() {
	t.phase = HandComplete
	t.rotateDealer()

	if countSeats(t.hand.Seats, isFunded) < MinSeats {
		t.phase = SessionComplete
		t.logger.Info().Msg("Session over")
		t.emit(SessionOverEvent{eventHeader: t.header(), Remaining: t.seatViews(false)})
		return
	}
	if t.cfg.autoContinue {
		t.beginHand()
	}
}

// rotateDealer advances the button one seat, skipping seats without chips,
// and clears the per-hand flags.
func (t *Table) rotateDealer() {
	h := &t.hand
	for _, s := range h.Seats {
		s.Folded = false
		s.CurrentBet = 0
	}

	h.Dealer = (h.Dealer + 1) % len(h.Seats)
	if !isFunded(h.Seats[h.Dealer]) {
		if next := nextSeat(h.Seats, h.Dealer, isFunded); next != -1 {
			h.Dealer = next
		}
	}

	t.emit(DealerRotatedEvent{
		eventHeader: t.header(),
		Dealer:      h.Dealer,
		PlayerID:    h.Seats[h.Dealer].PlayerID,
	})
}

// abortHand ends the hand with no winner: commitments are refunded, the pot
// is emptied and the button stays put.
func (t *Table) abortHand(reason string) {
	h := &t.hand
	refunds := make(map[string]int)
	for _, s := range h.Seats {
		if s.TotalBet > 0 {
			s.Chips += s.TotalBet
			refunds[s.PlayerID] = s.TotalBet
		}
		s.TotalBet = 0
		s.CurrentBet = 0
		s.Folded = false
	}
	h.Pot = 0
	t.betting.close()
	t.phase = HandComplete

	t.logger.Warn().Str("hand", h.ID).Str("reason", reason).Msg("Hand aborted")
	t.emit(HandAbortedEvent{eventHeader: t.header(), Reason: reason, Refunds: refunds})
}

package phh

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lox/holdemtable/internal/fileutil"
	"github.com/lox/holdemtable/internal/game"
	"github.com/rs/zerolog"
)

// DefaultQueueSize is how many finished hands may wait for the disk
const DefaultQueueSize = 256

// Recorder turns table events into hand histories, one file per completed
// hand at <dir>/<table>/<hand>.phh. Aborted hands are not written. A single
// recorder can follow many tables on a shared event bus. Histories are built
// as events arrive; files are written by a background worker, so call Close
// to wait for them.
type Recorder struct {
	dir       string
	logger    zerolog.Logger
	onWrite   func(path string, hand *HandHistory)
	queueSize int

	queue     chan *HandHistory
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	closing bool
	hands   map[string]*handState
	written int
	dropped int
}

type handState struct {
	history   *HandHistory
	seats     []game.SeatView
	positions []int // seat index -> player position, -1 when not dealt in
	order     []int // player position -> seat index
	streetBet int
}

// RecorderOption configures a Recorder
type RecorderOption func(*Recorder)

// WithLogger sets the recorder's logger
func WithLogger(logger zerolog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithWriteHook registers a callback invoked after each hand is written.
// It runs on the writer goroutine.
func WithWriteHook(fn func(path string, hand *HandHistory)) RecorderOption {
	return func(r *Recorder) {
		r.onWrite = fn
	}
}

// WithQueueSize sets how many finished hands may wait to be written before
// new ones are dropped
func WithQueueSize(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// NewRecorder creates a recorder writing below dir
func NewRecorder(dir string, opts ...RecorderOption) (*Recorder, error) {
	if dir == "" {
		return nil, errors.New("phh: output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("phh: create dir: %w", err)
	}

	r := &Recorder{
		dir:       dir,
		logger:    zerolog.Nop(),
		queueSize: DefaultQueueSize,
		hands:     make(map[string]*handState),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.queue = make(chan *HandHistory, r.queueSize)
	go r.run()
	return r, nil
}

// Close writes every queued hand and stops the writer. Hands finishing
// afterwards are dropped.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closing = true
		close(r.queue)
		r.mu.Unlock()
		<-r.done
	})
	return nil
}

func (r *Recorder) run() {
	defer close(r.done)
	for h := range r.queue {
		r.write(h)
	}
}

// Path returns where a hand is written
func (r *Recorder) Path(table, handID string) string {
	return filepath.Join(r.dir, safeName(table), safeName(handID)+".phh")
}

// Written returns the number of hands written so far
func (r *Recorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Dropped returns the number of finished hands that were never queued for writing
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// OnEvent implements game.EventSubscriber
func (r *Recorder) OnEvent(e game.GameEvent) {
	switch ev := e.(type) {
	case game.HandStartedEvent:
		r.start(ev)
	case game.BlindsPostedEvent:
		r.blinds(ev)
	case game.ActionAppliedEvent:
		r.action(ev)
	case game.StreetRevealedEvent:
		r.street(ev)
	case game.HandWonEvent:
		r.finish(ev)
	case game.HandAbortedEvent:
		r.mu.Lock()
		delete(r.hands, ev.TableID())
		r.mu.Unlock()
		r.logger.Debug().Str("table", ev.TableID()).Str("hand", ev.HandID()).Msg("Discarding aborted hand")
	}
}

func (r *Recorder) start(ev game.HandStartedEvent) {
	history := &HandHistory{
		Variant:    Variant,
		Table:      ev.TableID(),
		HandID:     ev.HandID(),
		HandNumber: ev.HandNumber,
		Actions:    []string{},
		Metadata:   map[string]any{},
	}
	history.setTime(ev.Timestamp())
	if ev.Dealer >= 0 && ev.Dealer < len(ev.Seats) {
		history.Metadata["dealer"] = ev.Seats[ev.Dealer].PlayerID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.hands[ev.TableID()] = &handState{history: history, seats: ev.Seats}
}

// blinds fixes the position order, which starts at the small blind
func (r *Recorder) blinds(ev game.BlindsPostedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.hands[ev.TableID()]
	if st == nil {
		return
	}

	n := len(st.seats)
	st.positions = make([]int, n)
	for i := range st.positions {
		st.positions[i] = -1
	}
	for i := 0; i < n; i++ {
		idx := (ev.SmallBlindSeat + i) % n
		if st.seats[idx].SittingOut {
			continue
		}
		st.positions[idx] = len(st.order)
		st.order = append(st.order, idx)
	}

	h := st.history
	count := len(st.order)
	h.SeatCount = n
	h.Seats = make([]int, count)
	h.Antes = make([]int, count)
	h.BlindsOrStraddles = make([]int, count)
	h.StartingStacks = make([]int, count)
	h.Players = make([]string, count)
	h.MinBet = max(ev.BigBlind, ev.SmallBlind)
	for pos, idx := range st.order {
		h.Seats[pos] = idx + 1
		h.StartingStacks[pos] = st.seats[idx].Chips
		h.Players[pos] = st.seats[idx].PlayerID
		h.Actions = append(h.Actions, fmt.Sprintf("d dh p%d ????", pos+1))
	}
	if p := st.positions[ev.SmallBlindSeat]; p >= 0 {
		h.BlindsOrStraddles[p] = ev.SmallBlind
	}
	if p := st.positions[ev.BigBlindSeat]; p >= 0 {
		h.BlindsOrStraddles[p] = ev.BigBlind
	}
	st.streetBet = max(ev.SmallBlind, ev.BigBlind)
}

func (r *Recorder) action(ev game.ActionAppliedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.hands[ev.TableID()]
	if st == nil || ev.Seat >= len(st.positions) || st.positions[ev.Seat] < 0 {
		return
	}

	line := FormatAction(st.positions[ev.Seat], ev.Action, ev.SeatBet, st.streetBet)
	st.history.Actions = append(st.history.Actions, line)
	st.streetBet = max(st.streetBet, ev.SeatBet)
}

func (r *Recorder) street(ev game.StreetRevealedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.hands[ev.TableID()]
	if st == nil {
		return
	}
	st.history.Actions = append(st.history.Actions, "d db "+FormatCards(ev.Cards))
	st.streetBet = 0
}

func (r *Recorder) finish(ev game.HandWonEvent) {
	r.mu.Lock()
	st := r.hands[ev.TableID()]
	delete(r.hands, ev.TableID())
	r.mu.Unlock()
	if st == nil || st.positions == nil {
		return
	}

	h := st.history
	h.FinishingStacks = make([]int, len(st.order))
	h.Winnings = make([]int, len(st.order))
	for pos, idx := range st.order {
		if idx < len(ev.Seats) {
			h.FinishingStacks[pos] = ev.Seats[idx].Chips
		}
		if cards, ok := ev.HoleCards[st.seats[idx].PlayerID]; ok {
			h.Actions = append(h.Actions, fmt.Sprintf("p%d sm %s", pos+1, FormatCards(cards)))
		}
	}
	if ev.Seat < len(st.positions) && st.positions[ev.Seat] >= 0 {
		h.Winnings[st.positions[ev.Seat]] = ev.Amount
	}
	h.Metadata["win_reason"] = string(ev.Reason)
	if ev.Policy != "" {
		h.Metadata["showdown_policy"] = ev.Policy
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closing {
		r.dropped++
		r.logger.Warn().Str("table", h.Table).Str("hand", h.HandID).Msg("Recorder closed, dropping hand history")
		return
	}
	select {
	case r.queue <- h:
	default:
		r.dropped++
		r.logger.Warn().Str("table", h.Table).Str("hand", h.HandID).Msg("Write queue full, dropping hand history")
	}
}

func (r *Recorder) write(h *HandHistory) {
	path := r.Path(h.Table, h.HandID)
	err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Encode(w, h)
	})
	if err != nil {
		r.logger.Error().Err(err).Str("table", h.Table).Str("hand", h.HandID).Msg("Failed to write hand history")
		return
	}

	r.mu.Lock()
	r.written++
	r.mu.Unlock()
	r.logger.Debug().Str("path", path).Msg("Hand history written")
	if r.onWrite != nil {
		r.onWrite(path, h)
	}
}

func safeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

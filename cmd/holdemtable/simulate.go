package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/lox/holdemtable/internal/deck"
	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/phh"
	"github.com/lox/holdemtable/internal/randutil"
	"github.com/muesli/termenv"
	"golang.org/x/sync/errgroup"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
	tableStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))
	leaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))
	bustedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

// SimulateCmd plays scripted players on several tables at once
type SimulateCmd struct {
	Tables         int    `kong:"default='4',help='Number of tables to run concurrently'"`
	Seats          int    `kong:"default='3',help='Players per table (2-5)'"`
	Hands          int    `kong:"default='100',help='Hands to play per table'"`
	Strategy       string `kong:"default='mixed',enum='call,random,raise,mixed',help='Player strategy: call, random, raise or mixed'"`
	Showdown       string `kong:"default='ranked',help='Showdown policy (first-after-dealer or ranked)'"`
	SmallBlind     int    `kong:"default='10',help='Small blind amount'"`
	BigBlind       int    `kong:"default='20',help='Big blind amount'"`
	StartingStack  int    `kong:"default='1000',help='Starting chips per seat'"`
	Seed           *int64 `kong:"help='Deterministic RNG seed (optional)'"`
	HandHistoryDir string `kong:"help='Write a PHH file per finished hand into this directory'"`
	Verbose        bool   `kong:"short='V',help='Narrate every event'"`
	NoColor        bool   `kong:"env='NO_COLOR',help='Print the summary without colours'"`
}

func (c *SimulateCmd) Run() error {
	if c.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	narrator := setupNarrator(c.Verbose)
	_, seed := randutil.FromOptional(c.Seed)

	policy, err := game.ParseShowdownPolicy(c.Showdown)
	if err != nil {
		return err
	}
	sim := simulation{
		Tables:   c.Tables,
		Seats:    c.Seats,
		Hands:    c.Hands,
		Strategy: c.Strategy,
		Seed:     seed,
		Options: []game.TableOption{
			game.WithBlinds(c.SmallBlind, c.BigBlind),
			game.WithStartingStack(c.StartingStack),
			game.WithShowdownPolicy(policy),
		},
	}
	if c.HandHistoryDir != "" {
		// Room for every hand so a fast simulation never outruns the disk
		recorder, err := phh.NewRecorder(c.HandHistoryDir, phh.WithQueueSize(c.Tables*c.Hands))
		if err != nil {
			return fmt.Errorf("hand history: %w", err)
		}
		defer recorder.Close()
		sim.Subscribers = append(sim.Subscribers, recorder)
	}

	narrator.Info("Starting simulation",
		"tables", c.Tables, "seats", c.Seats, "hands", c.Hands,
		"strategy", c.Strategy, "showdown", policy.Name(), "seed", seed)

	ctx := setupSignalHandler(setupLogger("warn", false))
	start := time.Now()
	results, err := sim.Run(ctx, narrator)
	if err != nil {
		return err
	}
	printResults(os.Stdout, results, time.Since(start))
	return nil
}

// simulation describes one run of scripted tables
type simulation struct {
	Tables      int
	Seats       int
	Hands       int
	Strategy    string
	Seed        int64
	Options     []game.TableOption
	Subscribers []game.EventSubscriber
}

// tableResult summarises one simulated table
type tableResult struct {
	Table       string
	Hands       int
	Showdowns   int
	Aborted     int
	Wins        map[string]int
	Seats       []game.SeatView
	TotalChips  int
	SessionOver bool
}

// Run plays every table on its own goroutine. The first failure cancels the rest.
func (s simulation) Run(ctx context.Context, narrator *log.Logger) ([]tableResult, error) {
	if s.Tables < 1 {
		return nil, errors.New("at least one table is required")
	}
	if s.Seats < game.MinSeats || s.Seats > game.MaxSeats {
		return nil, fmt.Errorf("seats must be between %d and %d", game.MinSeats, game.MaxSeats)
	}

	results := make([]tableResult, s.Tables)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.Tables; i++ {
		g.Go(func() error {
			res, err := s.runTable(ctx, i, narrator)
			if err != nil {
				return fmt.Errorf("table %d: %w", i+1, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s simulation) runTable(ctx context.Context, n int, narrator *log.Logger) (tableResult, error) {
	id := fmt.Sprintf("sim-%d", n+1)
	res := tableResult{Table: id, Wins: make(map[string]int)}
	tlog := narrator.With("table", id)

	opts := append([]game.TableOption{
		game.WithRNG(randutil.Derive(s.Seed, n)),
		game.WithAutoContinue(false),
	}, s.Options...)
	tbl := game.NewTable(id, opts...)
	tbl.Subscribe(game.SubscriberFunc(func(e game.GameEvent) {
		switch ev := e.(type) {
		case game.HandWonEvent:
			res.Wins[ev.PlayerID]++
			if ev.Reason == game.WinByShowdown {
				res.Showdowns++
			}
		case game.HandAbortedEvent:
			res.Aborted++
		}
		narrate(tlog, e)
	}))
	for _, sub := range s.Subscribers {
		tbl.Subscribe(sub)
	}

	strategies := make(map[string]strategy, s.Seats)
	for seat := 0; seat < s.Seats; seat++ {
		player := fmt.Sprintf("p%d", seat+1)
		if err := tbl.AddSeat(player); err != nil {
			return res, err
		}
		strategies[player] = newStrategy(s.Strategy, seat, randutil.Derive(s.Seed, 1000+n*game.MaxSeats+seat))
	}

	total := -1
	for res.Hands < s.Hands {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := tbl.StartHand(); err != nil {
			if errors.Is(err, game.ErrTooFewSeats) {
				res.SessionOver = true
				break
			}
			return res, err
		}
		if total < 0 {
			total = tbl.TotalChips()
		}

		for tbl.Phase() == game.HandInProgress {
			player, _, ok := tbl.CurrentActor()
			if !ok {
				return res, fmt.Errorf("hand %s has no actor", tbl.HandID())
			}
			kind, amount := strategies[player].Choose(tbl.ValidActions(player))
			if err := tbl.HandleAction(player, kind, amount); err != nil {
				return res, fmt.Errorf("%s %s %d: %w", player, kind, amount, err)
			}
			if got := tbl.TotalChips(); got != total {
				return res, fmt.Errorf("chips not conserved after %s %s: have %d, want %d", player, kind, got, total)
			}
		}
		res.Hands++
	}
	if tbl.Phase() == game.SessionComplete {
		res.SessionOver = true
	}

	res.Seats = tbl.Seats()
	res.TotalChips = tbl.TotalChips()
	tlog.Info("Table finished", "hands", res.Hands, "showdowns", res.Showdowns)
	return res, nil
}

// narrate writes one debug line per table event
func narrate(l *log.Logger, e game.GameEvent) {
	switch ev := e.(type) {
	case game.HandStartedEvent:
		l.Debug("Hand started", "hand", ev.HandNumber, "dealer", ev.Dealer)
	case game.BlindsPostedEvent:
		l.Debug("Blinds posted", "sb", ev.SmallBlindSeat, "bb", ev.BigBlindSeat, "pot", ev.Pot)
	case game.ActionAppliedEvent:
		l.Debug("Action", "player", ev.PlayerID, "action", ev.Action.String(), "amount", ev.Amount, "pot", ev.Pot)
	case game.StreetRevealedEvent:
		l.Debug("Street", "street", ev.Street.String(), "board", deck.FormatCards(ev.Board))
	case game.HandWonEvent:
		l.Debug("Hand won", "player", ev.PlayerID, "amount", ev.Amount, "reason", string(ev.Reason))
	case game.HandAbortedEvent:
		l.Warn("Hand aborted", "reason", ev.Reason)
	case game.SessionOverEvent:
		l.Info("Session over", "remaining", len(ev.Remaining))
	}
}

// strategy picks a legal action from the list offered to the current actor
type strategy interface {
	Name() string
	Choose(actions []game.ValidAction) (game.ActionKind, int)
}

func newStrategy(name string, seat int, rng *rand.Rand) strategy {
	switch name {
	case "call":
		return callingStation{}
	case "random":
		return randomPlayer{rng: rng}
	case "raise":
		return minRaiser{}
	}
	// mixed
	all := []strategy{callingStation{}, randomPlayer{rng: rng}, minRaiser{}}
	return all[seat%len(all)]
}

// callingStation never folds and never raises
type callingStation struct{}

func (callingStation) Name() string { return "call" }

func (callingStation) Choose(actions []game.ValidAction) (game.ActionKind, int) {
	for _, want := range []game.ActionKind{game.Check, game.Call, game.AllIn} {
		if a, ok := findAction(actions, want); ok {
			return a.Kind, 0
		}
	}
	return game.Fold, 0
}

// minRaiser bets or raises the minimum whenever it can
type minRaiser struct{}

func (minRaiser) Name() string { return "raise" }

func (minRaiser) Choose(actions []game.ValidAction) (game.ActionKind, int) {
	for _, want := range []game.ActionKind{game.Bet, game.Raise} {
		if a, ok := findAction(actions, want); ok {
			return a.Kind, a.Min
		}
	}
	return callingStation{}.Choose(actions)
}

// randomPlayer picks any legal action, folding rarely
type randomPlayer struct {
	rng *rand.Rand
}

func (randomPlayer) Name() string { return "random" }

func (p randomPlayer) Choose(actions []game.ValidAction) (game.ActionKind, int) {
	if len(actions) == 0 {
		return game.Fold, 0
	}
	candidates := actions
	if len(actions) > 1 && p.rng.IntN(5) > 0 {
		candidates = actions[1:]
	}
	a := candidates[p.rng.IntN(len(candidates))]
	amount := a.Min
	if a.Max > a.Min {
		amount += p.rng.IntN(a.Max - a.Min + 1)
	}
	return a.Kind, amount
}

func findAction(actions []game.ValidAction, kind game.ActionKind) (game.ValidAction, bool) {
	for _, a := range actions {
		if a.Kind == kind {
			return a, true
		}
	}
	return game.ValidAction{}, false
}

func printResults(w io.Writer, results []tableResult, elapsed time.Duration) {
	hands := 0
	for _, r := range results {
		hands += r.Hands
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Simulation: %d hands on %d tables in %s", hands, len(results), elapsed.Round(time.Millisecond))))

	for _, r := range results {
		status := ""
		if r.SessionOver {
			status = dimStyle.Render(" (session over)")
		}
		fmt.Fprintf(w, "\n%s  hands=%d showdowns=%d chips=%d%s\n",
			tableStyle.Render(r.Table), r.Hands, r.Showdowns, r.TotalChips, status)

		seats := append([]game.SeatView(nil), r.Seats...)
		sort.SliceStable(seats, func(i, j int) bool { return seats[i].Chips > seats[j].Chips })
		for i, s := range seats {
			line := fmt.Sprintf("  %-4s %6d chips  %3d wins", s.PlayerID, s.Chips, r.Wins[s.PlayerID])
			switch {
			case s.Chips == 0:
				line = bustedStyle.Render(line)
			case i == 0:
				line = leaderStyle.Render(line)
			}
			fmt.Fprintln(w, line)
		}
	}
	fmt.Fprintln(w, dimStyle.Render(strings.Repeat("─", 40)))
}

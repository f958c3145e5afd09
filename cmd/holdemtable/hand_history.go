package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lox/holdemtable/internal/deck"
	"github.com/lox/holdemtable/internal/phh"
	"github.com/sanity-io/litter"
)

// HandHistoryCmd is the root command for PHH utilities
type HandHistoryCmd struct {
	Show HandHistoryShowCmd `cmd:"show" help:"Print recorded hands in a readable form"`
	List HandHistoryListCmd `cmd:"list" help:"List the hands recorded under a directory"`
}

// HandHistoryShowCmd prints one or more PHH files
type HandHistoryShowCmd struct {
	Files []string `arg:"" name:"file" help:"Path to .phh files"`
	Dump  bool     `help:"Dump the decoded structure instead of the replay"`
}

func (cmd HandHistoryShowCmd) Run() error {
	for i, path := range cmd.Files {
		hand, err := phh.DecodeFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if i > 0 {
			fmt.Println()
		}
		if cmd.Dump {
			litter.Dump(hand)
			continue
		}
		if err := renderHand(os.Stdout, hand); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// HandHistoryListCmd summarises every hand under a directory
type HandHistoryListCmd struct {
	Dir string `arg:"" name:"dir" help:"Hand history directory" type:"existingdir"`
}

func (cmd HandHistoryListCmd) Run() error {
	return listHands(os.Stdout, cmd.Dir)
}

func listHands(w io.Writer, dir string) error {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".phh" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no hands found in %s", dir)
	}

	type entry struct {
		path string
		hand *phh.HandHistory
	}
	entries := make([]entry, 0, len(paths))
	for _, path := range paths {
		hand, err := phh.DecodeFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		entries = append(entries, entry{path, hand})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].hand, entries[j].hand
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		return a.HandNumber < b.HandNumber
	})

	for _, e := range entries {
		winner, amount, ok := e.hand.Winner()
		result := "no winner"
		if ok {
			result = fmt.Sprintf("%s +%d", winner, amount)
		}
		fmt.Fprintf(w, "%-12s #%-4d %-20s %s\n", e.hand.Table, e.hand.HandNumber, result, e.path)
	}
	return nil
}

// renderHand replays the action list with player names
func renderHand(w io.Writer, hand *phh.HandHistory) error {
	if len(hand.Players) == 0 {
		return errors.New("hand has no players")
	}

	fmt.Fprintf(w, "%s  hand #%d  %s\n", tableStyle.Render(hand.Table), hand.HandNumber, dimStyle.Render(hand.HandID))
	if len(hand.BlindsOrStraddles) >= 2 {
		fmt.Fprintf(w, "Blinds %d/%d\n", hand.BlindsOrStraddles[0], hand.BlindsOrStraddles[1])
	}
	for i, name := range hand.Players {
		stack := 0
		if i < len(hand.StartingStacks) {
			stack = hand.StartingStacks[i]
		}
		fmt.Fprintf(w, "  %s %-10s %6d\n", positionLabel(i, len(hand.Players)), name, stack)
	}

	for _, line := range hand.Actions {
		actor, verb, args := phh.ParseAction(line)
		if actor == "d" {
			if verb == "db" && len(args) > 0 {
				fmt.Fprintf(w, "  *** %s ***\n", prettyCards(args[0]))
			}
			continue
		}
		name, err := playerName(hand, actor)
		if err != nil {
			return err
		}
		switch verb {
		case "f":
			fmt.Fprintf(w, "  %s folds\n", name)
		case "cc":
			fmt.Fprintf(w, "  %s checks or calls\n", name)
		case "cbr":
			if len(args) == 0 {
				return fmt.Errorf("missing amount in %q", line)
			}
			fmt.Fprintf(w, "  %s bets to %s\n", name, args[0])
		case "sm":
			if len(args) == 0 {
				return fmt.Errorf("missing cards in %q", line)
			}
			fmt.Fprintf(w, "  %s shows %s\n", name, prettyCards(args[0]))
		default:
			return fmt.Errorf("unsupported action %q", line)
		}
	}

	if winner, amount, ok := hand.Winner(); ok {
		reason := ""
		if r, ok := hand.Metadata["win_reason"].(string); ok {
			reason = " by " + r
		}
		fmt.Fprintln(w, leaderStyle.Render(fmt.Sprintf("%s wins %d%s", winner, amount, reason)))
	}
	return nil
}

func playerName(hand *phh.HandHistory, actor string) (string, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(actor, "p"))
	if err != nil || !strings.HasPrefix(actor, "p") || n < 1 || n > len(hand.Players) {
		return "", fmt.Errorf("unknown actor %q", actor)
	}
	return hand.Players[n-1], nil
}

// positionLabel names a position counted from the small blind
func positionLabel(pos, n int) string {
	switch {
	case pos == 0:
		return "SB "
	case pos == 1:
		return "BB "
	case pos == n-1:
		return "BTN"
	default:
		return "   "
	}
}

// prettyCards renders a PHH card run with suit symbols, leaving unknown cards as they are
func prettyCards(run string) string {
	cards, err := deck.ParseCards(run)
	if err != nil {
		return run
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.Pretty()
	}
	return strings.Join(parts, " ")
}

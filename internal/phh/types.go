// Package phh records table hands in the Poker Hand History TOML format.
package phh

import "time"

// Variant is the PHH code for no-limit Texas hold'em
const Variant = "NT"

// HandHistory represents a single poker hand encoded in PHH format. Player
// arrays are ordered by position, starting from the small blind.
type HandHistory struct {
	Variant           string         `toml:"variant"`
	Table             string         `toml:"table,omitempty"`
	SeatCount         int            `toml:"seat_count,omitzero"`
	Seats             []int          `toml:"seats,omitempty"`
	Antes             []int          `toml:"antes"`
	BlindsOrStraddles []int          `toml:"blinds_or_straddles"`
	MinBet            int            `toml:"min_bet"`
	StartingStacks    []int          `toml:"starting_stacks"`
	FinishingStacks   []int          `toml:"finishing_stacks,omitempty"`
	Winnings          []int          `toml:"winnings,omitempty"`
	Actions           []string       `toml:"actions"`
	Players           []string       `toml:"players,omitempty"`
	HandID            string         `toml:"hand"`
	HandNumber        int            `toml:"hand_number,omitzero"`
	Time              string         `toml:"time,omitempty"`
	TimeZone          string         `toml:"time_zone,omitempty"`
	Day               int            `toml:"day,omitzero"`
	Month             int            `toml:"month,omitzero"`
	Year              int            `toml:"year,omitzero"`
	Metadata          map[string]any `toml:"metadata,omitempty"`

	Timestamp time.Time `toml:"-"`
}

// setTime fills the PHH date and time fields from t in UTC
func (h *HandHistory) setTime(t time.Time) {
	h.Timestamp = t
	if t.IsZero() {
		return
	}
	utc := t.UTC()
	h.Time = utc.Format("15:04:05")
	h.TimeZone = "UTC"
	h.Day = utc.Day()
	h.Month = int(utc.Month())
	h.Year = utc.Year()
}

// Winner returns the name of the player with positive winnings, if any
func (h *HandHistory) Winner() (string, int, bool) {
	for i, w := range h.Winnings {
		if w > 0 && i < len(h.Players) {
			return h.Players[i], w, true
		}
	}
	return "", 0, false
}

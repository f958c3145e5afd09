// Package game implements the betting engine for a Texas Hold'em table of two
// to five seats.
//
// The main type is Table, which owns the seats, the deck and the single
// canonical Hand, and drives each hand from blinds to award.
//
// # Basic Usage
//
//	tbl := game.NewTable("main", game.WithAutoContinue(false))
//	tbl.AddSeat("alice")
//	tbl.AddSeat("bob")
//	tbl.AddSeat("carol")
//	tbl.StartHand()
//
//	// Only the current actor may act; anything else is rejected with an
//	// *ActionError and changes nothing.
//	player, _, _ := tbl.CurrentActor()
//	tbl.HandleAction(player, game.Call, 0)
//
// # Deterministic Testing
//
// Use WithRNG with a seeded source from randutil, or WithDeck with an ordered
// deck to script the exact cards:
//
//	cards, _ := deck.ParseCards("AsKs2c3d7h8h...")
//	tbl := game.NewTable("t", game.WithDeck(deck.NewOrdered(cards)))
//
// # Architecture
//
// Table delegates to small components that each work on the shared Hand:
//   - BlindManager: posts the small and big blind
//   - BettingRound: tracks the current bet, the actor and street completion
//   - ActionManager: validates and applies fold, check, call, bet, raise and all-in
//   - CardRevealer: deals the flop, turn and river
//   - ShowdownPolicy: picks the winner when more than one seat remains
//
// # Chip Accounting
//
// Every chip a seat commits is credited to the pot at once, so at any moment
// the sum of stacks plus the pot is constant. Each seat's TotalBet records its
// commitment for the hand so an aborted hand can refund it exactly.
//
// # Events
//
// State changes are published on an EventBus after the table lock is
// released, in the order they happened. Subscribers must not call back into
// the same table from OnEvent.
package game

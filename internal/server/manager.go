package server

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lox/holdemtable/internal/config"
	"github.com/lox/holdemtable/internal/game"
	"github.com/rs/zerolog"
)

// TableInstance is one hosted table and its configuration.
type TableInstance struct {
	ID     string
	Config config.TableConfig
	Table  *game.Table
	Timer  *TurnTimer
}

// TableSummary holds lightweight metadata for clients.
type TableSummary struct {
	ID           string     `json:"id"`
	SmallBlind   int        `json:"small_blind"`
	BigBlind     int        `json:"big_blind"`
	StartChips   int        `json:"start_chips"`
	MaxSeats     int        `json:"max_seats"`
	Showdown     string     `json:"showdown"`
	Seated       int        `json:"seated"`
	Phase        game.Phase `json:"phase"`
	HandNumber   int        `json:"hand_number"`
	AutoFolds    uint64     `json:"auto_folds"`
	AutoContinue bool       `json:"auto_continue"`
}

// TableManager tracks the hosted tables.
type TableManager struct {
	logger zerolog.Logger
	mu     sync.RWMutex
	tables map[string]*TableInstance
}

// NewTableManager constructs an empty table manager.
func NewTableManager(logger zerolog.Logger) *TableManager {
	return &TableManager{
		logger: logger.With().Str("component", "table_manager").Logger(),
		tables: make(map[string]*TableInstance),
	}
}

// Register adds a table. Names must be unique.
func (tm *TableManager) Register(instance *TableInstance) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, ok := tm.tables[instance.ID]; ok {
		return fmt.Errorf("table %s already registered", instance.ID)
	}
	tm.tables[instance.ID] = instance
	tm.logger.Info().Str("table", instance.ID).Msg("Table registered")
	return nil
}

// Get retrieves a table by ID.
func (tm *TableManager) Get(id string) (*TableInstance, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	instance, ok := tm.tables[id]
	return instance, ok
}

// All returns every table ordered by ID.
func (tm *TableManager) All() []*TableInstance {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	out := make([]*TableInstance, 0, len(tm.tables))
	for _, t := range tm.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// List returns a snapshot of every table.
func (tm *TableManager) List() []TableSummary {
	tables := tm.All()
	summaries := make([]TableSummary, 0, len(tables))
	for _, t := range tables {
		summaries = append(summaries, t.Summary())
	}
	return summaries
}

// Summary describes the table's configuration and current state.
func (ti *TableInstance) Summary() TableSummary {
	view := ti.Table.Snapshot()
	summary := TableSummary{
		ID:           ti.ID,
		SmallBlind:   ti.Config.SmallBlind,
		BigBlind:     ti.Config.BigBlind,
		StartChips:   ti.Config.StartingStack,
		MaxSeats:     ti.Config.MaxSeats,
		Showdown:     ti.Config.Showdown,
		Seated:       len(view.Seats),
		Phase:        view.Phase,
		HandNumber:   view.HandNumber,
		AutoContinue: ti.Config.AutoContinue == nil || *ti.Config.AutoContinue,
	}
	if ti.Timer != nil {
		summary.AutoFolds = ti.Timer.AutoFolds()
	}
	return summary
}

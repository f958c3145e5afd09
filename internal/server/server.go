// Package server hosts tables over websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/lox/holdemtable/internal/config"
	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/protocol"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Server hosts the configured tables and relays their events to clients.
type Server struct {
	addr      string
	logger    zerolog.Logger
	clock     quartz.Clock
	timeout   time.Duration
	tableOpts []game.TableOption

	upgrader  websocket.Upgrader
	tables    *TableManager
	validator *protocol.Validator
	bus       *game.SimpleEventBus

	mu    sync.RWMutex
	conns map[*Connection]struct{}
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger, which tables inherit
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithClock sets the clock used by tables and turn timers
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// WithTableOptions appends options applied to every table after the configured ones
func WithTableOptions(opts ...game.TableOption) Option {
	return func(s *Server) {
		s.tableOpts = append(s.tableOpts, opts...)
	}
}

// New builds a server and its tables from configuration.
//
// Example usage:
//
//	srv, err := server.New(cfg, server.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	srv.Subscribe(recorder)
//	return srv.Run(ctx)
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	timeout, err := cfg.ActionTimeout()
	if err != nil {
		return nil, err
	}
	validator, err := protocol.NewValidator()
	if err != nil {
		return nil, err
	}

	s := &Server{
		addr:    cfg.Server.Address,
		logger:  zerolog.Nop(),
		clock:   quartz.NewReal(),
		timeout: timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		validator: validator,
		bus:       game.NewEventBus(),
		conns:     make(map[*Connection]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "server").Logger()
	s.tables = NewTableManager(s.logger)

	for _, tc := range cfg.Tables {
		tableOpts, err := tc.Options()
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", tc.Name, err)
		}
		tableOpts = append(tableOpts,
			game.WithLogger(s.logger),
			game.WithClock(s.clock),
			game.WithEventBus(s.bus))
		tableOpts = append(tableOpts, s.tableOpts...)

		instance := &TableInstance{ID: tc.Name, Config: tc, Table: game.NewTable(tc.Name, tableOpts...)}
		if timeout > 0 {
			instance.Timer = NewTurnTimer(instance.Table, timeout, s.clock, s.logger)
			s.bus.Subscribe(instance.Timer)
		}
		if err := s.tables.Register(instance); err != nil {
			return nil, err
		}
	}

	// Timers are armed before clients hear about a turn
	s.bus.Subscribe(s)
	return s, nil
}

// Tables returns the hosted tables
func (s *Server) Tables() *TableManager {
	return s.tables
}

// Subscribe registers for the events of every hosted table
func (s *Server) Subscribe(sub game.EventSubscriber) {
	s.bus.Subscribe(sub)
}

// Handler returns the HTTP routes: /ws, /health and /tables
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/tables", s.handleTables)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", s.addr).Int("tables", len(s.tables.All())).Msg("Starting table server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info().Msg("Shutting down table server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		s.Close()
		return err
	})
	return g.Wait()
}

// Close stops every turn timer and disconnects every client
func (s *Server) Close() {
	for _, t := range s.tables.All() {
		if t.Timer != nil {
			t.Timer.Stop()
		}
	}

	s.mu.RLock()
	conns := make([]*Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.RUnlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

// ConnectionCount returns the number of open websocket connections
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// OnEvent relays table events to the connections seated at that table and
// prompts private views where a player needs one.
func (s *Server) OnEvent(e game.GameEvent) {
	msg := protocol.NewEvent(e)

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for c := range s.conns {
		table, player := c.Seat()
		if table == nil || table.ID != e.TableID() {
			continue
		}
		if err := c.Send(msg); err != nil {
			continue
		}
		count++

		switch ev := e.(type) {
		case game.HandStartedEvent:
			_ = c.Send(stateRequest{})
		case game.TurnStartedEvent:
			if ev.PlayerID == player {
				_ = c.Send(stateRequest{})
			}
		}
	}
	s.logger.Debug().Str("table", e.TableID()).Stringer("event", e.EventType()).Int("recipients", count).Msg("Broadcast event")
}

func (s *Server) register(c *Connection) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	total := len(s.conns)
	s.mu.Unlock()
	s.logger.Info().Str("conn", c.ID).Int("total", total).Msg("Client connected")
}

func (s *Server) unregister(c *Connection) {
	s.mu.Lock()
	if _, ok := s.conns[c]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.conns, c)
	total := len(s.conns)
	s.mu.Unlock()

	if table, player := c.Seat(); table != nil {
		if err := table.Table.RemoveSeat(player); err != nil {
			s.logger.Info().Err(err).Str("table", table.ID).Str("player", player).Msg("Seat kept after disconnect")
		} else {
			s.logger.Info().Str("table", table.ID).Str("player", player).Msg("Removed disconnected player")
		}
	}
	s.logger.Info().Str("conn", c.ID).Int("total", total).Msg("Client disconnected")
}

// handleWebSocket upgrades the request. ?format=json (default) or msgpack
// selects the wire codec.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	codec, err := protocol.CodecFor(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	c := NewConnection(ws, codec, s)
	s.register(c)
	c.Start()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.tables.List()); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode table list")
	}
}

package broadcast

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lox/holdemtable/internal/game"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	declareErr error
	publishErr error
	messages   []published
	closed     bool
	gate       chan struct{} // when set, Publish waits for it to close
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declared = append(f.declared, name+":"+kind)
	return f.declareErr
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.messages = append(f.messages, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestPublisherDeclaresTopicExchange(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "holdem.events", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"holdem.events:topic"}, ch.declared)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)

	_, err = NewPublisher(&fakeChannel{declareErr: errors.New("denied")}, "x", zerolog.Nop())
	assert.ErrorContains(t, err, "denied")

	_, err = NewPublisher(&fakeChannel{}, "", zerolog.Nop())
	assert.Error(t, err)
}

func TestPublisherForwardsTableEvents(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "holdem.events", zerolog.Nop())
	require.NoError(t, err)

	tbl := game.NewTable("high.stakes", game.WithAutoContinue(false))
	require.NoError(t, tbl.AddSeat("alice"))
	require.NoError(t, tbl.AddSeat("bob"))
	tbl.Subscribe(p)
	require.NoError(t, tbl.StartHand())
	require.NoError(t, p.Close())

	require.NotEmpty(t, ch.messages)
	first := ch.messages[0]
	assert.Equal(t, "holdem.events", first.exchange)
	assert.Equal(t, "holdem.high_stakes.hand_started", first.key)
	assert.Equal(t, "application/json", first.msg.ContentType)
	assert.Equal(t, amqp.Persistent, first.msg.DeliveryMode)
	assert.NotEmpty(t, first.msg.MessageId)
	assert.Equal(t, tbl.HandID(), first.msg.Headers["hand"])

	var body struct {
		Event string `json:"event"`
		Table string `json:"table"`
		Data  struct {
			HandNumber int `json:"hand_number"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(first.msg.Body, &body))
	assert.Equal(t, "hand_started", body.Event)
	assert.Equal(t, "high.stakes", body.Table)
	assert.Equal(t, 1, body.Data.HandNumber)

	keys := make([]string, len(ch.messages))
	for i, m := range ch.messages {
		keys[i] = m.key
	}
	assert.Contains(t, keys, "holdem.high_stakes.blinds_posted")
	assert.Contains(t, keys, "holdem.high_stakes.turn_started")

	sent, failed := p.Stats()
	assert.Equal(t, uint64(len(ch.messages)), sent)
	assert.Zero(t, failed)
}

func TestPublisherFailuresDoNotReachTable(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{publishErr: errors.New("connection closed")}
	p, err := NewPublisher(ch, "holdem.events", zerolog.Nop())
	require.NoError(t, err)

	tbl := game.NewTable("main", game.WithAutoContinue(false))
	require.NoError(t, tbl.AddSeat("alice"))
	require.NoError(t, tbl.AddSeat("bob"))
	tbl.Subscribe(p)
	require.NoError(t, tbl.StartHand())
	require.NoError(t, p.Close())

	sent, failed := p.Stats()
	assert.Zero(t, sent)
	assert.NotZero(t, failed)
	assert.Equal(t, game.HandInProgress, tbl.Phase())
}

func TestSlowBrokerDoesNotBlockTable(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{gate: make(chan struct{})}
	p, err := newPublisher(ch, "holdem.events", zerolog.Nop(), 1)
	require.NoError(t, err)

	tbl := game.NewTable("main", game.WithAutoContinue(false))
	require.NoError(t, tbl.AddSeat("alice"))
	require.NoError(t, tbl.AddSeat("bob"))
	tbl.Subscribe(p)

	started := make(chan error, 1)
	go func() { started <- tbl.StartHand() }()
	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("table blocked on a slow broker")
	}
	assert.Equal(t, game.HandInProgress, tbl.Phase())

	// Three events against one queue slot plus the one in flight.
	close(ch.gate)
	require.NoError(t, p.Close())
	sent, failed := p.Stats()
	assert.Equal(t, uint64(len(ch.messages)), sent)
	assert.NotZero(t, failed)
	assert.Equal(t, uint64(3), sent+failed)
}

func TestPublisherCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "holdem.events", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	tbl := game.NewTable("late", game.WithAutoContinue(false))
	require.NoError(t, tbl.AddSeat("alice"))
	require.NoError(t, tbl.AddSeat("bob"))
	tbl.Subscribe(p)
	require.NoError(t, tbl.StartHand())

	sent, failed := p.Stats()
	assert.Zero(t, sent)
	assert.Equal(t, uint64(3), failed)
	assert.Empty(t, ch.messages)
}

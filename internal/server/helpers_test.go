package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lox/holdemtable/internal/config"
	"github.com/lox/holdemtable/internal/protocol"
	"github.com/stretchr/testify/require"
)

// newTestServer hosts the default "main" table with auto-continue and the
// turn timer off unless mutate says otherwise.
func newTestServer(t *testing.T, mutate func(*config.Config), opts ...Option) (*Server, *httptest.Server) {
	t.Helper()

	cfg := config.Default()
	off := false
	cfg.Tables[0].AutoContinue = &off
	cfg.Server.ActionTimeout = "off"
	if mutate != nil {
		mutate(cfg)
	}

	srv, err := New(cfg, opts...)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return srv, ts
}

type testClient struct {
	t     *testing.T
	conn  *websocket.Conn
	codec protocol.Codec
}

func dial(t *testing.T, ts *httptest.Server, format string) *testClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if format != "" {
		url += "?format=" + format
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	codec, err := protocol.CodecFor(format)
	require.NoError(t, err)
	return &testClient{t: t, conn: conn, codec: codec}
}

func (c *testClient) send(msg protocol.ClientMessage) {
	c.t.Helper()
	data, err := c.codec.Marshal(msg)
	require.NoError(c.t, err)

	frame := websocket.TextMessage
	if c.codec.Binary() {
		frame = websocket.BinaryMessage
	}
	require.NoError(c.t, c.conn.WriteMessage(frame, data))
}

func (c *testClient) sendRaw(data string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, []byte(data)))
}

// next reads one message into a generic document
func (c *testClient) next() map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	frame, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	if c.codec.Binary() {
		require.Equal(c.t, websocket.BinaryMessage, frame)
	} else {
		require.Equal(c.t, websocket.TextMessage, frame)
	}

	var msg map[string]any
	require.NoError(c.t, c.codec.Unmarshal(data, &msg))
	return msg
}

// waitFor reads until a message satisfies match
func (c *testClient) waitFor(desc string, match func(map[string]any) bool) map[string]any {
	c.t.Helper()
	for range 100 {
		if msg := c.next(); match(msg) {
			return msg
		}
	}
	c.t.Fatalf("never received %s", desc)
	return nil
}

func isType(typ string) func(map[string]any) bool {
	return func(m map[string]any) bool { return m["type"] == typ }
}

func isEvent(name string) func(map[string]any) bool {
	return func(m map[string]any) bool { return m["type"] == protocol.TypeEvent && m["event"] == name }
}

// isStateWithActor matches a state message where the viewer is to act
func isStateWithActor(m map[string]any) bool {
	if m["type"] != protocol.TypeState {
		return false
	}
	state := m["state"].(map[string]any)
	actions, _ := state["valid_actions"].([]any)
	return len(actions) > 0
}

func (c *testClient) join(table, player string) map[string]any {
	c.t.Helper()
	c.send(protocol.ClientMessage{Type: protocol.TypeJoin, Table: table, Player: player})
	return c.waitFor("joined", isType(protocol.TypeJoined))
}

package conduit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/qntx-runtime/bridge"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestUpgradeRegistersClientAndSendDelivers(t *testing.T) {
	h := NewHub(nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, h.Upgrade(w, r, "client-1"))
	}))
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	msg, err := bridge.ParseMessage("ping?seq=-1", nil)
	require.NoError(t, err)
	require.NoError(t, h.Send("client-1", bridge.Ok(msg, map[string]interface{}{"pong": true})))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var received map[string]interface{}
	require.NoError(t, conn.ReadJSON(&received))
	assert.Equal(t, "ping", received["source"])
}

func TestSendToUnknownClientIsANoop(t *testing.T) {
	h := NewHub(nil)
	msg, err := bridge.ParseMessage("ping?seq=-1", nil)
	require.NoError(t, err)
	assert.NoError(t, h.Send("no-such-client", bridge.Ok(msg, nil)))
}

func TestCloseUnregistersClient(t *testing.T) {
	h := NewHub(nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, h.Upgrade(w, r, "client-2"))
	}))
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)
	h.mu.RLock()
	_, ok := h.clients["client-2"]
	h.mu.RUnlock()
	require.True(t, ok)

	h.Close("client-2")

	h.mu.RLock()
	_, ok = h.clients["client-2"]
	h.mu.RUnlock()
	assert.False(t, ok)
}

func TestCheckOriginAllowsConfiguredPrefixesOnly(t *testing.T) {
	h := NewHub([]string{"http://localhost"})
	check := h.upgrader.CheckOrigin

	r := &http.Request{Header: http.Header{"Origin": []string{"http://localhost:5173"}}}
	assert.True(t, check(r))

	r = &http.Request{Header: http.Header{"Origin": []string{"https://evil.example"}}}
	assert.False(t, check(r))

	r = &http.Request{Header: http.Header{}}
	assert.True(t, check(r))
}

package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*WebSocketManager, string) {
	t.Helper()
	wsm := NewWebSocketManager([]string{"http://app.test"}, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = wsm.Serve(w, r, r.URL.Query().Get("user"))
	}))
	t.Cleanup(srv.Close)
	return wsm, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url, user string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?user="+user, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var welcome PushMessage
	require.NoError(t, conn.ReadJSON(&welcome))
	require.Equal(t, "connection", welcome.Type)
	return conn
}

func TestSendToUserReachesEveryConnection(t *testing.T) {
	wsm, url := startHub(t)
	first := dial(t, url, "u1", nil)
	second := dial(t, url, "u1", nil)
	other := dial(t, url, "u2", nil)
	require.Eventually(t, func() bool { return wsm.GetConnectionCount() == 3 }, time.Second, 10*time.Millisecond)

	delivered, err := wsm.SendToUser("u1", PushMessage{Type: "subscription", Level: "success", Message: "Upgraded"})
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)

	for _, conn := range []*websocket.Conn{first, second} {
		var msg PushMessage
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "subscription", msg.Type)
		assert.Equal(t, "Upgraded", msg.Message)
		assert.False(t, msg.Timestamp.IsZero())
	}

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var none PushMessage
	assert.Error(t, other.ReadJSON(&none))
}

func TestSendToOfflineUser(t *testing.T) {
	wsm, _ := startHub(t)
	delivered, err := wsm.SendToUser("nobody", PushMessage{Type: "x", Message: "y"})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Zero(t, delivered)
}

func TestPingGetsPong(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url, "u1", nil)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	var msg PushMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Type)
}

func TestDisconnectUnregisters(t *testing.T) {
	wsm, url := startHub(t)
	conn := dial(t, url, "u1", nil)
	require.Eventually(t, func() bool { return wsm.GetConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return wsm.GetConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.Empty(t, wsm.GetConnectedUsers())
}

func TestRejectsForeignOrigin(t *testing.T) {
	_, url := startHub(t)

	_, resp, err := websocket.DefaultDialer.Dial(url+"?user=u1", http.Header{"Origin": []string{"http://evil.test"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	dial(t, url, "u1", http.Header{"Origin": []string{"http://app.test"}})
}

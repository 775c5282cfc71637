package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/domain"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/service"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/testutil"
)

func doRequest(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAPI_Health(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ts := testutil.NewTestServer(t)

	resp, err := http.Get(ts.BaseURL() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_RequiresToken(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ts := testutil.NewTestServer(t)

	resp := doRequest(t, http.MethodPost, ts.APIURL("/game/auto-match"), "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, ts.APIURL("/game/auto-match"), "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_PrivateRoomFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ts := testutil.NewTestServer(t)
	ownerToken := testutil.SignToken(t, ts.Config.JWTSecret, "owner", "Ali")
	friendToken := testutil.SignToken(t, ts.Config.JWTSecret, "friend", "Ayşe")

	resp := doRequest(t, http.MethodPost, ts.APIURL("/game/rooms"), ownerToken, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		RoomID string `json:"roomId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.RoomID)

	resp = doRequest(t, http.MethodPost, ts.APIURL("/game/rooms/"+created.RoomID+"/join"), friendToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Joining a made-up code is a 404.
	resp = doRequest(t, http.MethodPost, ts.APIURL("/game/rooms/ZZZZZZ/join"), friendToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Only the owner can start.
	resp = doRequest(t, http.MethodPost, ts.APIURL("/game/rooms/"+created.RoomID+"/start"), friendToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, ts.APIURL("/game/rooms/"+created.RoomID+"/start"), ownerToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The room fills with bots and reaches play.
	require.Eventually(t, func() bool {
		resp := doRequest(t, http.MethodGet, ts.APIURL("/game/room"), ownerToken, nil)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		var room domain.Room
		if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
			return false
		}
		return room.State == domain.RoomStatePlaying && room.IsFull()
	}, 5*time.Second, 20*time.Millisecond, "room never reached playing")

	resp = doRequest(t, http.MethodPost, ts.APIURL("/game/answer"), ownerToken, map[string]string{"answer": "su"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Double answers are rejected.
	resp = doRequest(t, http.MethodPost, ts.APIURL("/game/answer"), ownerToken, map[string]string{"answer": "ayran"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, ts.APIURL("/game/leave"), friendToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_WebSocketStreamsUpdates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ts := testutil.NewTestServer(t)
	token := testutil.SignToken(t, ts.Config.JWTSecret, "h1", "Ali")

	conn, _, err := websocket.DefaultDialer.Dial(ts.WebSocketURL(token), nil)
	require.NoError(t, err)
	defer conn.Close()

	resp := doRequest(t, http.MethodPost, ts.APIURL("/game/auto-match"), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var update service.RoomUpdate
	require.NoError(t, json.Unmarshal(data, &update))
	require.NotNil(t, update.Room)
	assert.Equal(t, domain.RoomStateWaiting, update.Room.State)
}

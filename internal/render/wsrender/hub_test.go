package wsrender

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fxdispatch/internal/ir"
	"github.com/roach88/fxdispatch/internal/render"
)

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func TestHub_BroadcastsBatch(t *testing.T) {
	hub := NewHub()
	conn := dial(t, hub)

	err := hub.Render(context.Background(), render.Batch{
		ModuleName: "fxdispatch",
		Origin:     "item-1",
		Placements: []ir.Placement{{Phase: ir.PhaseTarget, File: "hit.webm"}},
	})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var msg struct {
		Type  string       `json:"type"`
		Batch render.Batch `json:"batch"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, TypeBatch, msg.Type)
	assert.Equal(t, "item-1", msg.Batch.Origin)
	require.Len(t, msg.Batch.Placements, 1)
	assert.Equal(t, "hit.webm", msg.Batch.Placements[0].File)
}

func TestHub_BroadcastsSound(t *testing.T) {
	hub := NewHub()
	conn := dial(t, hub)

	require.NoError(t, hub.PlaySound(context.Background(), render.Sound{Origin: "o", Cue: ir.SoundCue{File: "swing.ogg"}}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, TypeSound, msg["type"])
}

func TestHub_EffectRemoved(t *testing.T) {
	got := make(chan Removal, 1)
	hub := NewHub(WithRemovalHandler(func(r Removal) { got <- r }))
	conn := dial(t, hub)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "bogus"}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": TypeEffectRemoved, "origin": "item-1"}))
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":     TypeEffectRemoved,
		"scene_id": "arena",
		"origin":   "item-1",
		"target":   "ogre",
	}))

	select {
	case r := <-got:
		assert.Equal(t, Removal{SceneID: "arena", Origin: "item-1", Target: "ogre"}, r)
	case <-time.After(time.Second):
		t.Fatal("removal not delivered")
	}
}

func TestHub_Close(t *testing.T) {
	hub := NewHub()
	conn := dial(t, hub)

	require.NoError(t, hub.Close())
	assert.Equal(t, 0, hub.Clients())
	assert.ErrorIs(t, hub.Render(context.Background(), render.Batch{}), render.ErrClosed)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_NoClients(t *testing.T) {
	assert.NoError(t, NewHub().Render(context.Background(), render.Batch{}))
}

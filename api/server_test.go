package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orientd/api"
	"orientd/orientation"
	"orientd/storage"
)

// testRig wires a pipeline fed by a simulated sensor behind a test server.
type testRig struct {
	sensor *orientation.SimulatedSensor
	p      *orientation.Pipeline
	server *httptest.Server
}

func newTestRig(t *testing.T, store *storage.TransitionStore) *testRig {
	t.Helper()

	sensor := orientation.NewSimulatedSensor(time.Millisecond, 0)
	p := orientation.NewPipeline(orientation.Config{Debounce: time.Millisecond, FilterTau: 0}, sensor)
	p.Start()

	srv := httptest.NewServer(api.NewServer(p, store).ServeMux())
	t.Cleanup(func() {
		srv.Close()
		p.Close()
	})
	return &testRig{sensor: sensor, p: p, server: srv}
}

// emitAndSettle pushes a reading and waits until the pipeline has published.
func (r *testRig) emitAndSettle(t *testing.T, ts time.Time, x, y float64, want orientation.State) {
	t.Helper()

	ch := make(chan orientation.Transition, 1)
	token := r.p.AddListener(func(tr orientation.Transition) {
		select {
		case ch <- tr:
		default:
		}
	})
	defer r.p.RemoveListener(token)

	r.sensor.Emit(orientation.GravityReading{Timestamp: ts, X: x, Y: y})
	select {
	case tr := <-ch:
		require.Equal(t, want, tr.State)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pipeline to publish")
	}
}

func getJSON(t *testing.T, url string, into interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestCurrentEndpoint(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.emitAndSettle(t, time.Now(), 0.9, -0.1, orientation.LandscapeLeft)

	var resp map[string]interface{}
	getJSON(t, rig.server.URL+"/api/orientation", &resp)
	assert.Equal(t, true, resp["running"])
	assert.Equal(t, "landscape_left", resp["orientation"])
}

func TestRecentEndpoint(t *testing.T) {
	rig := newTestRig(t, nil)
	base := time.Now()
	rig.emitAndSettle(t, base, 0, -1, orientation.Portrait)
	rig.emitAndSettle(t, base.Add(50*time.Millisecond), 0.9, -0.1, orientation.LandscapeLeft)

	var resp struct {
		Transitions []struct {
			State string `json:"state"`
		} `json:"transitions"`
	}
	getJSON(t, rig.server.URL+"/api/orientation/recent?n=10", &resp)
	require.Len(t, resp.Transitions, 2)
	assert.Equal(t, "portrait", resp.Transitions[0].State)
	assert.Equal(t, "landscape_left", resp.Transitions[1].State)
}

func TestHistoryEndpoint(t *testing.T) {
	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	rig := newTestRig(t, store)

	// Persist through a listener, as main does.
	token := rig.p.AddListener(func(tr orientation.Transition) { store.Record(tr) })
	defer rig.p.RemoveListener(token)

	rig.emitAndSettle(t, time.Now(), -1, 0, orientation.LandscapeRight)

	// The store listener runs on the delivery goroutine; wait for the row.
	require.Eventually(t, func() bool {
		counts, err := store.CountByState()
		return err == nil && counts["landscape_right"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	var resp struct {
		Transitions []struct {
			State string `json:"state"`
		} `json:"transitions"`
		Counts map[string]int64 `json:"counts"`
	}
	getJSON(t, rig.server.URL+"/api/orientation/history", &resp)
	require.Len(t, resp.Transitions, 1)
	assert.Equal(t, "landscape_right", resp.Transitions[0].State)
	assert.Equal(t, int64(1), resp.Counts["landscape_right"])
}

func TestHistoryWithoutStore(t *testing.T) {
	rig := newTestRig(t, nil)
	resp, err := http.Get(rig.server.URL + "/api/orientation/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	rig := newTestRig(t, nil)

	var resp map[string]interface{}
	getJSON(t, rig.server.URL+"/api/orientation/stats", &resp)
	pipeline, ok := resp["pipeline"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, pipeline["running"])
}

func TestMethodNotAllowed(t *testing.T) {
	rig := newTestRig(t, nil)
	resp, err := http.Post(rig.server.URL+"/api/orientation", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStreamPushesTransitions(t *testing.T) {
	rig := newTestRig(t, nil)
	base := time.Now()
	rig.emitAndSettle(t, base, 0, -1, orientation.Portrait)

	wsURL := "ws" + strings.TrimPrefix(rig.server.URL, "http") + "/api/orientation/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Current state arrives immediately on connect.
	var first struct {
		State string `json:"state"`
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "portrait", first.State)

	rig.emitAndSettle(t, base.Add(50*time.Millisecond), 0.9, -0.1, orientation.LandscapeLeft)

	var second struct {
		State string `json:"state"`
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "landscape_left", second.State)
}

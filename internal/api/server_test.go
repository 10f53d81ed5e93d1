package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tycoon-sim/internal/catalog"
	"github.com/talgya/tycoon-sim/internal/engine"
	"github.com/talgya/tycoon-sim/internal/entropy"
	"github.com/talgya/tycoon-sim/internal/persistence"
	"github.com/talgya/tycoon-sim/internal/state"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cat := catalog.New(
		[]catalog.BuildingDef{{ID: 1, Name: "Iron Mine", Kind: catalog.KindExtraction, BaseCost: 1_000_000, PowerConsumption: 2000, Produces: 10}},
		[]catalog.ProductDef{{ID: 10, Name: "Iron Ore"}, {ID: 30, Name: "Microchip"}},
		nil,
	)
	st := state.NewStore()
	st.PutCompany(state.Company{ID: 1, Name: "Acme", Reputation: 50})
	st.PutCompany(state.Company{ID: 2, Name: "Globex", Reputation: 50})
	st.PutFinances(state.Finances{CompanyID: 1, Cash: 1_000_000})
	st.PutFacility(state.FacilityRecord{
		Facility:   state.Facility{ID: 7, BuildingID: 1, Level: 1, Operational: true, CompanyID: 1},
		Production: &state.Production{Utilization: 50},
	})
	st.PutFacility(state.FacilityRecord{
		Facility: state.Facility{ID: 8, BuildingID: 1, Level: 1, CompanyID: 2},
		Research: &state.Research{ProductID: 30},
	})
	st.Tech.FindOrCreate(1, 30)

	sim := engine.NewSimulation(st, cat, entropy.NewSequence(), 1)
	srv := &Server{Sim: sim, Eng: engine.NewEngine(), Catalog: cat, AdminKey: "k"}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func post(t *testing.T, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStatus(t *testing.T) {
	_, ts := newTestServer(t)
	var status map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/status", &status))
	assert.Equal(t, "Acme", status["player_name"])
	assert.Equal(t, float64(1_000_000), status["player_cash"])
	assert.Equal(t, float64(2), status["facilities"])
	assert.Equal(t, float64(1), status["operational"])
	assert.Equal(t, 1.0, status["speed"])
}

func TestCompaniesAndFacilities(t *testing.T) {
	_, ts := newTestServer(t)

	var companies []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/companies", &companies))
	require.Len(t, companies, 2)
	assert.Equal(t, true, companies[0]["is_player"])
	assert.Equal(t, float64(1), companies[0]["facilities"])

	var facilities []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/facilities?company=2", &facilities))
	require.Len(t, facilities, 1)
	assert.Equal(t, float64(8), facilities[0]["id"])
	assert.Equal(t, "Iron Mine", facilities[0]["building_name"])

	var detail map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/facility/7", &detail))
	assert.Equal(t, "extraction", detail["building_kind"])
	assert.NotNil(t, detail["production"])

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/facility/99", &detail))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/v1/facility/abc", &detail))
}

func TestTechnology(t *testing.T) {
	_, ts := newTestServer(t)
	var entries []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/technology?company=1", &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, float64(40), entries[0]["tech_level"])
	assert.Equal(t, float64(1), entries[0]["tier"])
	assert.Equal(t, "Microchip", entries[0]["product_name"])
}

func TestEvents(t *testing.T) {
	srv, ts := newTestServer(t)
	for i := 0; i < 5; i++ {
		srv.Sim.EmitEvent(engine.Event{Tick: uint64(i), Category: engine.CategoryBilling})
	}
	srv.Sim.EmitEvent(engine.Event{Tick: 9, Category: engine.CategoryResearch})

	var events []engine.Event
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/events?limit=2", &events))
	require.Len(t, events, 2)
	assert.Equal(t, uint64(9), events[1].Tick)

	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/events?category=research", &events))
	require.Len(t, events, 1)
}

func TestAdminAuth(t *testing.T) {
	srv, ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, post(t, ts.URL+"/api/v1/speed", "", `{"speed": 5}`).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, post(t, ts.URL+"/api/v1/speed", "wrong", `{"speed": 5}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/v1/speed", "k", `{"speed": 5000}`).StatusCode)
	assert.Equal(t, http.StatusOK, post(t, ts.URL+"/api/v1/speed", "k", `{"speed": 5}`).StatusCode)
	assert.Equal(t, 5.0, srv.Eng.Speed())

	srv.AdminKey = ""
	assert.Equal(t, http.StatusForbidden, post(t, ts.URL+"/api/v1/speed", "k", `{"speed": 2}`).StatusCode)
}

func TestControl(t *testing.T) {
	srv, ts := newTestServer(t)

	resp := post(t, ts.URL+"/api/v1/control", "k", `{"type": "utilization", "facility_id": 7, "utilization": 90}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	srv.Sim.View(func(st *state.Store, _ state.TickContext) {
		assert.Equal(t, 90.0, st.Production[7].Utilization)
	})

	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/v1/control", "k", `{"type": "teleport", "facility_id": 7}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/v1/control", "k", `{"type": "research", "facility_id": 7, "product_id": 30}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/v1/control", "k", `{"type": "payroll"}`).StatusCode)
}

func TestSnapshot(t *testing.T) {
	srv, ts := newTestServer(t)
	assert.Equal(t, http.StatusServiceUnavailable, post(t, ts.URL+"/api/v1/snapshot", "k", "").StatusCode)

	db, err := persistence.Open(filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	defer db.Close()
	srv.DB = db

	assert.Equal(t, http.StatusOK, post(t, ts.URL+"/api/v1/snapshot", "k", "").StatusCode)
	assert.True(t, db.HasWorldState())
}

func TestStream(t *testing.T) {
	srv, ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first engine.SimStats
	require.NoError(t, conn.ReadJSON(&first))
	assert.Len(t, first.Companies, 2)

	srv.Sim.TickDay(30)
	srv.Sim.TickMonth(30)

	var next engine.SimStats
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, uint64(30), next.Tick)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 61, rl.RetryAfter("a"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("a"))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(r))
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))
}

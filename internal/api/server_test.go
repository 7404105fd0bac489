package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapstick/pkg/binding"
	"mapstick/pkg/config"
	"mapstick/pkg/controller"
	"mapstick/pkg/profile"
	"mapstick/pkg/store"
	"mapstick/pkg/tracker"
)

type mockStore struct {
	store.Store
	mu       sync.Mutex
	state    map[string]string
	profiles map[string][]byte
}

func newMockStore() *mockStore {
	return &mockStore{state: make(map[string]string), profiles: make(map[string][]byte)}
}

func (m *mockStore) GetState(ctx context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.state[key]
	return val, ok
}

func (m *mockStore) SetState(ctx context.Context, key, val string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[key] = val
	return nil
}

func (m *mockStore) DeleteState(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, key)
	return nil
}

func (m *mockStore) GetProfile(ctx context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[name], nil
}

func (m *mockStore) SaveProfile(ctx context.Context, name string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[name] = doc
	return nil
}

func (m *mockStore) ListProfiles(ctx context.Context) ([]store.ProfileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.ProfileInfo
	for name := range m.profiles {
		out = append(out, store.ProfileInfo{Name: name, Version: profile.Version})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type mockController struct {
	mu      sync.Mutex
	profile *profile.Profile
	keys    []string
}

func (m *mockController) State() controller.State {
	return controller.State{Frame: 42, Context: binding.ContextPrimaryNav}
}

func (m *mockController) Profile() *profile.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

func (m *mockController) SetProfile(p *profile.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = p
}

// UpdateProfile mirrors the controller's compare-and-swap loop. The yield
// between read and swap lets concurrent requests interleave.
func (m *mockController) UpdateProfile(fn func(*profile.Profile) (*profile.Profile, error)) (*profile.Profile, error) {
	for {
		cur := m.Profile()
		next, err := fn(cur)
		if err != nil {
			return nil, err
		}
		runtime.Gosched()
		m.mu.Lock()
		if m.profile == cur {
			m.profile = next
			m.mu.Unlock()
			return next, nil
		}
		m.mu.Unlock()
	}
}

func (m *mockController) ExecuteKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
}

type fixture struct {
	ctrl    *mockController
	store   *mockStore
	handler http.Handler
	applied []float64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctrl:  &mockController{profile: profile.Default()},
		store: newMockStore(),
	}
	inline := func(fn func()) { fn() }
	prov := config.NewProvider(config.DefaultConfig(), f.store)
	srv := NewServer("",
		NewStateHandler(f.ctrl, inline),
		NewProfileHandler(f.ctrl, f.store, nil),
		NewConfigHandler(f.store, prov, func(zoom float64, timeout time.Duration) {
			f.applied = append(f.applied, zoom)
		}),
		NewStatsHandler(tracker.New()),
		nil,
		func() {},
	)
	f.handler = srv.Handler
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewReader(body)))
	return rec
}

func TestServer_Basics(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		path     string
		wantCode int
		contains string
	}{
		{"Health", "/health", http.StatusOK, "OK"},
		{"Version", "/api/version", http.StatusOK, `"version"`},
		{"State", "/api/state", http.StatusOK, `"frame":42`},
		{"Stats", "/api/stats", http.StatusOK, `"diagnostics"`},
		{"Config", "/api/config", http.StatusOK, `"profile_preset":"default"`},
		{"Unknown", "/api/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestHandleCommand(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/command", []byte(`{"key":"primary-nav.orbit"}`))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"primary-nav.orbit"}, f.ctrl.keys)

	rec = f.do(t, http.MethodPost, "/api/command", []byte(`{"key":"primary-nav.ORBT"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "primary-nav.ORBIT", body["did_you_mean"])
	assert.Len(t, f.ctrl.keys, 1)
}

func TestHandlePreset(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/profile/preset/southpaw", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, profile.PresetSouthpaw, f.ctrl.Profile().Name)
	assert.NotNil(t, f.store.profiles[profile.PresetSouthpaw])
	assert.Equal(t, profile.PresetSouthpaw, f.store.state[config.KeyProfileName])
	assert.Equal(t, profile.PresetSouthpaw, f.store.state[config.KeyProfilePreset])

	rec = f.do(t, http.MethodPost, "/api/profile/preset/lefty", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "trigger-zoom")
}

func TestProfileExportImport(t *testing.T) {
	f := newFixture(t)
	original := f.ctrl.Profile()

	rec := f.do(t, http.MethodGet, "/api/profile/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.Bytes()

	f.ctrl.SetProfile(profile.Default())
	rec = f.do(t, http.MethodPost, "/api/profile/import", exported)
	require.Equal(t, http.StatusOK, rec.Code)

	got := f.ctrl.Profile()
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, original.Bindings, got.Bindings)
	assert.Equal(t, original.Settings, got.Settings)

	rec = f.do(t, http.MethodGet, "/api/profiles", nil)
	assert.Contains(t, rec.Body.String(), `"name":"default"`)
}

func TestHandleImport_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		contains string
	}{
		{"Malformed", `{"bindings":`, http.StatusBadRequest, "malformed"},
		{"Future_Version", `{"version":99}`, http.StatusUnprocessableEntity, "unsupported"},
		{"Unknown_Command", `{"version":2,"name":"x","bindings":{"primary-nav.ZOOM_INN":{"type":"button","index":5}}}`, http.StatusOK, "primary-nav.ZOOM_IN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, "/api/profile/import", []byte(tt.body))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestHandleAssign(t *testing.T) {
	f := newFixture(t)

	// Button 2 drives ORBIT in the default profile.
	req := `{"command":"primary-nav.RECENTER","binding":{"type":"button","index":2}}`
	rec := f.do(t, http.MethodPost, "/api/bindings/assign", []byte(req))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{binding.CmdOrbit.Key()}, resp.Displaced)

	b, ok := f.ctrl.Profile().Bindings.Get(binding.CmdRecenter)
	require.True(t, ok)
	assert.Equal(t, binding.Button(2), b)
	_, ok = f.ctrl.Profile().Bindings.Get(binding.CmdOrbit)
	assert.False(t, ok)

	rec = f.do(t, http.MethodPost, "/api/bindings/assign", []byte(`{"command":"primary-nav.PAN_X","binding":{"type":"button","index":3}}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "plain buttons cannot drive axes")
}

func TestHandleAssign_Concurrent(t *testing.T) {
	f := newFixture(t)
	assignments := map[binding.Command]int{
		binding.CmdRecenter:         40,
		binding.CmdGeolocate:        41,
		binding.CmdTogglePitchLimit: 42,
		binding.CmdCancelCinematic:  43,
	}

	var wg sync.WaitGroup
	codes := make(chan int, len(assignments))
	for cmd, button := range assignments {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := fmt.Sprintf(`{"command":%q,"binding":{"type":"button","index":%d}}`, cmd.Key(), button)
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bindings/assign", strings.NewReader(body)))
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	for cmd, button := range assignments {
		b, ok := f.ctrl.Profile().Bindings.Get(cmd)
		require.True(t, ok, cmd.Key())
		assert.Equal(t, binding.Button(button), b, "assignment of %s lost", cmd.Key())
	}

	// The stored document is the final profile, not an intermediate one.
	saved, _, err := profile.Import(f.store.profiles[f.ctrl.Profile().Name])
	require.NoError(t, err)
	for cmd, button := range assignments {
		b, ok := saved.Bindings.Get(cmd)
		require.True(t, ok, cmd.Key())
		assert.Equal(t, binding.Button(button), b)
	}
}

func TestHandleSetConfig(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/config", []byte(`{"geolocate_zoom":13,"geolocate_timeout":"4s","orbit_speed":12}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ConfigResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 13.0, resp.GeolocateZoom)
	assert.Equal(t, "4s", resp.GeolocateTimeout)
	assert.Equal(t, 12.0, resp.OrbitSpeed)
	assert.Equal(t, []float64{13}, f.applied)

	rec = f.do(t, http.MethodPut, "/api/config", []byte(`{"geolocate_timeout":"soon"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A bad field rejects the whole request.
	rec = f.do(t, http.MethodPut, "/api/config", []byte(`{"geolocate_zoom":5,"orbit_speed":-1}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	val, _ := f.store.GetState(context.Background(), config.KeyGeolocateZoom)
	assert.Equal(t, "13.00", val)
	assert.Equal(t, []float64{13}, f.applied)

	rec = f.do(t, http.MethodDelete, "/api/config", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrischmann/envconfig"

	"github.com/dreamware/inboxdeploy/internal/cluster"
)

func init() {
	registerDelay = time.Millisecond
}

// fakeCoordinator records registrations and answers with the queued status
// codes, then 204.
type fakeCoordinator struct {
	mu           sync.Mutex
	codes        []int
	registered   []cluster.Instance
	deregistered []string
	attempts     int
}

func (f *fakeCoordinator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/register":
		f.attempts++
		if len(f.codes) > 0 {
			code := f.codes[0]
			f.codes = f.codes[1:]
			w.WriteHeader(code)
			return
		}
		var req cluster.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.registered = append(f.registered, req.Instance)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodDelete:
		f.deregistered = append(f.deregistered, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("AGENT_ROLES", "elasticinbox,cassandra")
	t.Setenv("PRIVATE_IP", "10.0.0.1")
	t.Setenv("COORDINATOR_ADDR", "http://coord:8080")

	var cfg Config
	require.NoError(t, envconfig.Init(&cfg))

	assert.Equal(t, []string{"elasticinbox", "cassandra"}, cfg.Roles)
	assert.Equal(t, "10.0.0.1", cfg.PrivateIP)
	assert.Equal(t, ":8081", cfg.Listen)
	assert.Equal(t, "http://127.0.0.1:8081", cfg.Addr)
	assert.Equal(t, uint(10), cfg.RegisterAttempts)
	assert.Equal(t, "", cfg.ID)
}

func TestNewAgent(t *testing.T) {
	a := NewAgent(Config{
		ID:        "inbox-1",
		Roles:     []string{" elasticinbox", "", "cassandra "},
		PrivateIP: "10.0.0.1",
		PublicIP:  "203.0.113.7",
		Addr:      "http://10.0.0.1:8081/",
	})

	inst := a.Instance()
	assert.Equal(t, "inbox-1", inst.ID)
	assert.Equal(t, []string{"elasticinbox", "cassandra"}, inst.Roles)
	assert.Equal(t, "10.0.0.1", inst.PrivateIP)
	assert.Equal(t, "203.0.113.7", inst.PublicIP)
	assert.Equal(t, "http://10.0.0.1:8081", inst.Addr)

	inst.Roles[0] = "mutated"
	assert.Equal(t, "elasticinbox", a.Instance().Roles[0])
}

func TestNewAgentGeneratesID(t *testing.T) {
	a := NewAgent(Config{PrivateIP: "10.0.0.1"})
	_, err := uuid.Parse(a.Instance().ID)
	assert.NoError(t, err)
	assert.NotEqual(t, a.Instance().ID, NewAgent(Config{}).Instance().ID)
}

func TestAgentRoutes(t *testing.T) {
	a := NewAgent(Config{ID: "inbox-1", Roles: []string{"elasticinbox"}, PrivateIP: "10.0.0.1"})
	h := a.routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var info struct {
		Instance cluster.Instance `json:"instance"`
		Uptime   string           `json:"uptime"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, "inbox-1", info.Instance.ID)
	assert.Equal(t, []string{"elasticinbox"}, info.Instance.Roles)
	assert.NotEmpty(t, info.Uptime)
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name         string
		codes        []int
		attempts     uint
		wantErr      bool
		wantAttempts int
	}{
		{name: "first try", attempts: 3, wantAttempts: 1},
		{name: "retries server errors", codes: []int{503, 502}, attempts: 5, wantAttempts: 3},
		{name: "gives up", codes: []int{500, 500, 500}, attempts: 3, wantErr: true, wantAttempts: 3},
		{name: "client error is final", codes: []int{400}, attempts: 5, wantErr: true, wantAttempts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord := &fakeCoordinator{codes: tt.codes}
			ts := httptest.NewServer(coord)
			defer ts.Close()

			inst := cluster.Instance{ID: "a", Roles: []string{"cassandra"}, PrivateIP: "10.0.0.1"}
			err := register(context.Background(), ts.URL, inst, tt.attempts, zerolog.Nop())

			coord.mu.Lock()
			defer coord.mu.Unlock()
			assert.Equal(t, tt.wantAttempts, coord.attempts)
			if tt.wantErr {
				require.Error(t, err)
				var status *cluster.StatusError
				assert.True(t, errors.As(err, &status))
				return
			}
			require.NoError(t, err)
			require.Len(t, coord.registered, 1)
			assert.Equal(t, inst, coord.registered[0])
		})
	}
}

func TestRegisterUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	err := register(context.Background(), url, cluster.Instance{ID: "a"}, 2, zerolog.Nop())
	assert.Error(t, err)
}

func TestRegisterCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := register(ctx, "http://127.0.0.1:1", cluster.Instance{ID: "a"}, 0, zerolog.Nop())
	assert.Error(t, err)
}

func TestRunRegistersAndLeaves(t *testing.T) {
	coord := &fakeCoordinator{}
	ts := httptest.NewServer(coord)
	defer ts.Close()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	listen := l.Addr().String()
	require.NoError(t, l.Close())

	cfg := Config{
		ID:               "inbox-1",
		Roles:            []string{"elasticinbox"},
		PrivateIP:        "10.0.0.1",
		Listen:           listen,
		Addr:             "http://" + listen,
		Coordinator:      ts.URL,
		RegisterAttempts: 3,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, zerolog.New(io.Discard)) }()

	require.Eventually(t, func() bool {
		coord.mu.Lock()
		defer coord.mu.Unlock()
		return len(coord.registered) == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(cfg.Addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	coord.mu.Lock()
	defer coord.mu.Unlock()
	assert.Equal(t, []string{"/instances/inbox-1"}, coord.deregistered)
}

func TestRunRegistrationFailure(t *testing.T) {
	coord := &fakeCoordinator{codes: []int{400}}
	ts := httptest.NewServer(coord)
	defer ts.Close()

	cfg := Config{ID: "a", PrivateIP: "10.0.0.1", Listen: "127.0.0.1:0", Coordinator: ts.URL, RegisterAttempts: 2}
	err := run(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestDeregisterUnknownIsNotAnError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()
	assert.NoError(t, deregister(context.Background(), ts.URL, "gone"))
}

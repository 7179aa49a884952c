package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakeScheduler struct {
	mu       sync.Mutex
	running  bool
	startErr error
	starts   int
}

func (f *fakeScheduler) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	f.running = true
	return nil
}

func (f *fakeScheduler) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

func (f *fakeScheduler) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func testConfig(t *testing.T) Config {
	return Config{LockPath: filepath.Join(t.TempDir(), "sentinel.lock"), HealthAddr: "127.0.0.1:0"}
}

func check(t *testing.T, addr string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestDaemon_StartServesHealth(t *testing.T) {
	sched := &fakeScheduler{}
	d, err := New(testConfig(t), sched)
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	defer d.Stop(context.Background())

	assert.True(t, d.Running())
	assert.True(t, sched.Running())
	require.NotNil(t, d.Addr())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, d.Addr().String()))
}

func TestDaemon_SecondInstanceRefused(t *testing.T) {
	cfg := testConfig(t)
	first, err := New(cfg, &fakeScheduler{})
	require.NoError(t, err)
	require.NoError(t, first.Start(context.Background()))
	defer first.Stop(context.Background())

	second, err := New(cfg, &fakeScheduler{})
	require.NoError(t, err)
	assert.ErrorIs(t, second.Start(context.Background()), ErrAlreadyRunning)
}

func TestDaemon_StopReleasesLock(t *testing.T) {
	cfg := testConfig(t)
	sched := &fakeScheduler{}
	d, err := New(cfg, sched)
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	d.Stop(context.Background())

	assert.False(t, d.Running())
	assert.False(t, sched.Running())
	assert.Nil(t, d.Addr())

	again, err := New(cfg, &fakeScheduler{})
	require.NoError(t, err)
	require.NoError(t, again.Start(context.Background()))
	again.Stop(context.Background())
}

func TestDaemon_SchedulerFailureReleasesLock(t *testing.T) {
	cfg := testConfig(t)
	d, err := New(cfg, &fakeScheduler{startErr: errors.New("bad schedule")})
	require.NoError(t, err)
	assert.Error(t, d.Start(context.Background()))
	assert.False(t, d.Running())

	ok, err := New(cfg, &fakeScheduler{})
	require.NoError(t, err)
	require.NoError(t, ok.Start(context.Background()))
	ok.Stop(context.Background())
}

func TestDaemon_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.HealthAddr = ""
	sched := &fakeScheduler{}
	d, err := New(cfg, sched)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	assert.Eventually(t, sched.Running, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, sched.Running())
}

func TestNew_Validates(t *testing.T) {
	_, err := New(Config{LockPath: "x"}, nil)
	assert.Error(t, err)
	_, err = New(Config{}, &fakeScheduler{})
	assert.Error(t, err)
}

package shipper

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/coinscope/coinscope/agent/internal/config"
	"github.com/coinscope/coinscope/pkg/rpc"
	"github.com/coinscope/coinscope/pkg/types"
)

// mockServer implements rpc.SnapshotServer for testing.
type mockServer struct {
	mu       sync.Mutex
	received []*types.MarketSnapshot
	keys     []string
	failWith error // returned for every call when set
}

func (m *mockServer) SendSnapshot(ctx context.Context, snap *types.MarketSnapshot) (*types.SendResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		m.keys = append(m.keys, md.Get("x-api-key")...)
	}
	m.received = append(m.received, snap)
	return &types.SendResponse{OK: true}, nil
}

func (m *mockServer) snapshots() []*types.MarketSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.MarketSnapshot, len(m.received))
	copy(out, m.received)
	return out
}

// startTestServer starts an in-process gRPC server and returns a dial
// function that connects to it.
func startTestServer(t *testing.T, srv *mockServer) dialFunc {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	gs := grpc.NewServer()
	rpc.RegisterSnapshotServer(gs, srv)
	go gs.Serve(lis) //nolint:errcheck
	t.Cleanup(gs.Stop)

	addr := lis.Addr().String()
	return func(ctx context.Context, _ string, _ config.AgentConfig) (*grpc.ClientConn, error) {
		return grpc.DialContext(ctx, addr, //nolint:staticcheck
			grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
}

func makeCycle(id string, price float64) *Cycle {
	rank := 4
	return &Cycle{
		SourceID:   id,
		VsCurrency: "usd",
		At:         time.Now(),
		Coins: []types.CoinSnapshot{
			{ID: "solana", Symbol: "sol", CurrentPrice: price, MarketCap: 7e10, MarketCapRank: &rank, TotalVolume: 3e9},
		},
		Predictions: []types.ScoredCoin{{Score: 66, Confidence: 74}},
		Rates:       []types.ExchangeRate{{Base: "USD", Quote: "INR", Rate: 83.12}},
	}
}

func agentCfg() config.AgentConfig {
	return config.AgentConfig{
		SourceID:       "agent-test",
		ServerEndpoint: "unused-overridden-by-dialFn",
		BufferSize:     10,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestShipper_DeliversSnapshot(t *testing.T) {
	srv := &mockServer{}
	s := New(agentCfg(), nil)
	s.dialFn = startTestServer(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go s.Run(ctx)

	s.Ship(makeCycle("agent-1", 150))
	waitFor(t, func() bool { return len(srv.snapshots()) > 0 })

	snaps := srv.snapshots()
	if len(snaps) != 1 {
		t.Fatalf("server received %d snapshots, want 1", len(snaps))
	}
	got := snaps[0]
	if got.SourceID != "agent-1" {
		t.Errorf("SourceID = %q, want agent-1", got.SourceID)
	}
	if len(got.Coins) != 1 || got.Coins[0].CurrentPrice != 150 {
		t.Errorf("Coins = %+v", got.Coins)
	}
	if len(got.Predictions) != 1 || got.Predictions[0].Score != 66 {
		t.Errorf("Predictions = %+v", got.Predictions)
	}
}

func TestShipper_MultipleSnapshots(t *testing.T) {
	srv := &mockServer{}
	s := New(agentCfg(), nil)
	s.dialFn = startTestServer(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go s.Run(ctx)

	for i := 0; i < 5; i++ {
		s.Ship(makeCycle("src", float64(i)))
	}
	waitFor(t, func() bool { return len(srv.snapshots()) >= 5 })

	if got := len(srv.snapshots()); got != 5 {
		t.Errorf("server received %d snapshots, want 5", got)
	}
}

func TestShipper_APIKeyMetadata(t *testing.T) {
	t.Setenv("COINSCOPE_TEST_KEY", "k-123")
	srv := &mockServer{}
	cfg := agentCfg()
	cfg.ServerAuth = config.AuthConfig{Mode: "apikey", Header: "x-api-key", KeyEnv: "COINSCOPE_TEST_KEY"}
	s := New(cfg, nil)
	s.dialFn = startTestServer(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go s.Run(ctx)

	s.Ship(makeCycle("src", 1))
	waitFor(t, func() bool { return len(srv.snapshots()) > 0 })

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.keys) != 1 || srv.keys[0] != "k-123" {
		t.Errorf("keys seen by server = %v", srv.keys)
	}
}

func TestShipper_PermanentErrorDiscards(t *testing.T) {
	srv := &mockServer{failWith: status.Error(codes.Unauthenticated, "bad key")}
	var drops atomic.Int32
	s := New(agentCfg(), func() { drops.Add(1) })
	s.dialFn = startTestServer(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go s.Run(ctx)

	s.Ship(makeCycle("src", 1))
	waitFor(t, func() bool { return drops.Load() == 1 && s.Pending() == 0 })

	if drops.Load() != 1 {
		t.Errorf("drops = %d, want 1", drops.Load())
	}
	if s.Pending() != 0 {
		t.Errorf("pending = %d, permanent failure was requeued", s.Pending())
	}
}

func TestShipper_BufferEvictsOldest(t *testing.T) {
	var drops int
	s := New(config.AgentConfig{BufferSize: 3}, func() { drops++ })

	for i := 0; i < 5; i++ {
		s.Ship(makeCycle("src", float64(i)))
	}

	var prices []float64
	for len(s.buf) > 0 {
		snap := <-s.buf
		prices = append(prices, snap.Coins[0].CurrentPrice)
	}

	if len(prices) != 3 {
		t.Fatalf("buffer has %d items, want 3", len(prices))
	}
	for i, want := range []float64{2, 3, 4} {
		if prices[i] != want {
			t.Errorf("prices[%d] = %.0f, want %.0f", i, prices[i], want)
		}
	}
	if drops != 2 {
		t.Errorf("drops = %d, want 2", drops)
	}
}

func TestToSnapshot(t *testing.T) {
	c := makeCycle("agent-1", 150)
	c.At = time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("IST", 19800))

	snap := toSnapshot(c)
	if snap.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp not UTC: %v", snap.Timestamp)
	}
	if snap.Booming == nil || snap.Safe == nil {
		t.Error("nil screen lists")
	}
	if snap.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %q", snap.ErrorMessage)
	}
}

func TestToSnapshot_FetchError(t *testing.T) {
	c := makeCycle("agent-1", 150)
	c.Err = errors.New("market: unexpected status 429")

	snap := toSnapshot(c)
	if snap.ErrorMessage != "market: unexpected status 429" {
		t.Errorf("ErrorMessage = %q", snap.ErrorMessage)
	}
	if len(snap.Coins) != 0 || len(snap.Predictions) != 0 {
		t.Errorf("coin lists not cleared: %d coins, %d predictions", len(snap.Coins), len(snap.Predictions))
	}
	if len(snap.Rates) != 1 {
		t.Errorf("rates dropped on fetch error: %+v", snap.Rates)
	}
}

func TestBackoff_Resets(t *testing.T) {
	b := newBackoff()
	if first := b.next(); first > 2*time.Second {
		t.Errorf("first backoff too large: %v", first)
	}
	for i := 0; i < 10; i++ {
		b.next()
	}
	b.reset()
	if after := b.next(); after > 2*time.Second {
		t.Errorf("backoff after reset too large: %v", after)
	}
}

func TestBackoff_NeverExceedsMax(t *testing.T) {
	b := newBackoff()
	for i := 0; i < 50; i++ {
		if d := b.next(); d > time.Duration(float64(backoffMax)*(1+backoffJitter)) {
			t.Errorf("backoff[%d] = %v, exceeds max+jitter", i, d)
		}
	}
}

func TestShipper_GracefulShutdown(t *testing.T) {
	s := New(agentCfg(), nil)
	s.dialFn = startTestServer(t, &mockServer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

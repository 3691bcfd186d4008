package shipper

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/coinscope/coinscope/agent/internal/config"
	"github.com/coinscope/coinscope/pkg/rpc"
	"github.com/coinscope/coinscope/pkg/types"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
	backoffJitter     = 0.25
	sendTimeout       = 10 * time.Second
)

// Shipper buffers market snapshots and ships them to coinscope-server via gRPC.
// Ship is non-blocking; when the buffer is full the oldest snapshot is evicted.
// Run must be called in a goroutine to drain the buffer and handle reconnection.
type Shipper struct {
	cfg    config.AgentConfig
	buf    chan *types.MarketSnapshot
	dialFn dialFunc
	onDrop func()
}

// dialFunc opens a gRPC connection. Tests replace it with a local dialer.
type dialFunc func(ctx context.Context, endpoint string, cfg config.AgentConfig) (*grpc.ClientConn, error)

// New creates a Shipper using the given agent config. onDrop, if non-nil, is
// called each time a buffered snapshot is evicted or discarded.
func New(cfg config.AgentConfig, onDrop func()) *Shipper {
	size := cfg.BufferSize
	if size <= 0 {
		size = config.DefaultBufferSize
	}
	if onDrop == nil {
		onDrop = func() {}
	}
	return &Shipper{
		cfg:    cfg,
		buf:    make(chan *types.MarketSnapshot, size),
		dialFn: defaultDial,
		onDrop: onDrop,
	}
}

// Ship converts a poll cycle to a snapshot and enqueues it.
func (s *Shipper) Ship(c *Cycle) {
	s.enqueue(toSnapshot(c))
}

func (s *Shipper) enqueue(snap *types.MarketSnapshot) {
	for {
		select {
		case s.buf <- snap:
			return
		default:
		}
		select {
		case <-s.buf:
			s.onDrop()
			slog.Warn("shipper: buffer full, evicted oldest snapshot",
				"source", snap.SourceID, "buffer_cap", cap(s.buf))
		default:
		}
	}
}

// Pending returns the number of snapshots waiting to be sent.
func (s *Shipper) Pending() int { return len(s.buf) }

// Run drains the buffer, sending snapshots to the server.
// It reconnects with exponential backoff when the connection is lost.
// Run blocks until ctx is cancelled.
func (s *Shipper) Run(ctx context.Context) {
	bo := newBackoff()

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.dialFn(ctx, s.cfg.ServerEndpoint, s.cfg)
		if err != nil {
			wait := bo.next()
			slog.Error("shipper: dial failed, will retry",
				"endpoint", s.cfg.ServerEndpoint, "err", err, "retry_in", wait)
			if !sleep(ctx, wait) {
				return
			}
			continue
		}

		slog.Info("shipper: connected", "endpoint", s.cfg.ServerEndpoint)

		err = s.drain(ctx, rpc.NewSnapshotClient(conn), bo)
		conn.Close()

		if ctx.Err() != nil {
			return
		}

		wait := bo.next()
		slog.Warn("shipper: connection lost, will reconnect",
			"endpoint", s.cfg.ServerEndpoint, "err", err, "retry_in", wait)
		if !sleep(ctx, wait) {
			return
		}
	}
}

// drain sends buffered snapshots until a transient send error or ctx is done.
// The backoff is reset after each successful delivery.
func (s *Shipper) drain(ctx context.Context, client *rpc.SnapshotClient, bo *backoff) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case snap := <-s.buf:
			resp, err := s.send(ctx, client, snap)
			if err != nil {
				if isPermanentError(err) {
					s.onDrop()
					slog.Error("shipper: permanent send error, discarding snapshot",
						"source", snap.SourceID, "err", err)
					continue
				}
				// Requeue unless newer data has already filled the buffer.
				select {
				case s.buf <- snap:
				default:
					s.onDrop()
				}
				return fmt.Errorf("send: %w", err)
			}

			bo.reset()
			if !resp.OK {
				slog.Warn("shipper: server rejected snapshot",
					"source", snap.SourceID, "message", resp.Message)
			} else {
				slog.Debug("shipper: snapshot delivered",
					"source", snap.SourceID, "coins", len(snap.Coins))
			}
		}
	}
}

func (s *Shipper) send(ctx context.Context, client *rpc.SnapshotClient, snap *types.MarketSnapshot) (*types.SendResponse, error) {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	auth := s.cfg.ServerAuth
	if auth.Mode == "apikey" && auth.Header != "" {
		sendCtx = metadata.AppendToOutgoingContext(sendCtx, auth.Header, auth.Key())
	}
	return client.SendSnapshot(sendCtx, snap)
}

// isPermanentError returns true for gRPC errors that indicate the snapshot
// itself is invalid and should not be retried.
func isPermanentError(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.Unauthenticated, codes.PermissionDenied:
		return true
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// defaultDial opens a gRPC connection to endpoint with auth configured from cfg.
func defaultDial(ctx context.Context, endpoint string, cfg config.AgentConfig) (*grpc.ClientConn, error) {
	opts, err := dialOptions(cfg)
	if err != nil {
		return nil, err
	}
	return grpc.DialContext(ctx, endpoint, opts...) //nolint:staticcheck // DialContext kept for grpc 1.62
}

// dialOptions builds grpc.DialOption slice based on the server auth config.
func dialOptions(cfg config.AgentConfig) ([]grpc.DialOption, error) {
	if cfg.ServerAuth.Mode == "mtls" {
		creds, err := buildMTLSCreds(cfg.ServerAuth)
		if err != nil {
			return nil, fmt.Errorf("shipper: build mtls creds: %w", err)
		}
		return []grpc.DialOption{grpc.WithTransportCredentials(creds)}, nil
	}
	// apikey and none: the key travels as metadata on each call.
	return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, nil
}

// buildMTLSCreds loads client certificate and optional CA from the auth config.
func buildMTLSCreds(auth config.AuthConfig) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(auth.CertFile, auth.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load client cert: %w", err)
	}
	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}

	if auth.CAFile != "" {
		caPEM, err := os.ReadFile(auth.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("no valid certs in ca file %q", auth.CAFile)
		}
		tlsCfg.RootCAs = pool
	}
	return credentials.NewTLS(tlsCfg), nil
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current delay ±25% and doubles the base up to backoffMax.
func (b *backoff) next() time.Duration {
	d := b.current
	d += time.Duration(float64(b.current) * backoffJitter * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}

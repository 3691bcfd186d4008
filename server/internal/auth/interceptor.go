package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/coinscope/coinscope/server/internal/config"
)

// Checker validates API keys for one server auth configuration.
type Checker struct {
	enabled bool
	header  string
	key     []byte
}

// New resolves the key from the environment once. Auth is disabled when the
// mode is not "apikey" or the key variable is empty.
func New(cfg config.AuthConfig) *Checker {
	key := cfg.Key()
	return &Checker{
		enabled: cfg.Mode == "apikey" && key != "",
		header:  strings.ToLower(cfg.EffectiveHeader()),
		key:     []byte(key),
	}
}

// Enabled reports whether requests are checked at all.
func (c *Checker) Enabled() bool { return c.enabled }

// Header is the lowercased metadata/HTTP header carrying the key.
func (c *Checker) Header() string { return c.header }

// Valid reports whether got matches the configured key.
func (c *Checker) Valid(got string) bool {
	if !c.enabled {
		return true
	}
	return got != "" && subtle.ConstantTimeCompare([]byte(got), c.key) == 1
}

// UnaryInterceptor enforces the API key on every incoming gRPC call.
// A missing, empty, or incorrect key returns codes.Unauthenticated.
func (c *Checker) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if !c.enabled {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		vals := md.Get(c.header)
		if len(vals) == 0 || !c.Valid(vals[0]) {
			return nil, status.Error(codes.Unauthenticated, "invalid api key")
		}

		return handler(ctx, req)
	}
}

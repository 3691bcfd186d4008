package auth

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/coinscope/coinscope/server/internal/config"
)

// ServerOptions returns the gRPC transport options for cfg. Only mtls mode
// adds any: TLS with a required, CA-verified client certificate.
func ServerOptions(cfg config.AuthConfig) ([]grpc.ServerOption, error) {
	if cfg.Mode != "mtls" {
		return nil, nil
	}
	tlsCfg, err := serverTLSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("auth: mtls: %w", err)
	}
	return []grpc.ServerOption{grpc.Creds(credentials.NewTLS(tlsCfg))}, nil
}

func serverTLSConfig(cfg config.AuthConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load server cert: %w", err)
	}
	caPEM, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read ca file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("no valid certs in ca file %q", cfg.CAFile)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

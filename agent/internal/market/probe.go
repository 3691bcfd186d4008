package market

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"net/url"
	"time"

	"github.com/coinscope/coinscope/pkg/types"
)

const probeTimeout = 10 * time.Second

// expiringWithin is the window in which a valid certificate is reported as expiring.
const expiringWithin = 30 * 24 * time.Hour

// Probe dials the TLS endpoint behind rawURL and describes its leaf
// certificate. It returns nil for non-HTTPS URLs.
func Probe(ctx context.Context, rawURL string) *types.CertStatus {
	return probe(ctx, rawURL, &tls.Config{}, time.Now)
}

func probe(ctx context.Context, rawURL string, tlsCfg *tls.Config, now func() time.Time) *types.CertStatus {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" {
		return nil
	}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	dialer := &tls.Dialer{NetDialer: &net.Dialer{}, Config: tlsCfg}
	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		return &types.CertStatus{Status: "unreachable"}
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peers := conn.ConnectionState().PeerCertificates
	if len(peers) == 0 {
		return &types.CertStatus{Status: "unreachable"}
	}
	return describeCert(peers[0].NotAfter, peers[0].Issuer.CommonName, now())
}

// describeCert classifies a certificate expiring at notAfter.
func describeCert(notAfter time.Time, issuer string, now time.Time) *types.CertStatus {
	left := notAfter.Sub(now)
	cs := &types.CertStatus{
		DaysLeft: int32(math.Floor(left.Hours() / 24)),
		Issuer:   issuer,
		NotAfter: notAfter.UTC().Format(time.RFC3339),
	}
	switch {
	case left <= 0:
		cs.Status = "expired"
	case left <= expiringWithin:
		cs.Status = "expiring"
	default:
		cs.Status = "valid"
	}
	return cs
}

// Upstream reports reachability and certificate state for one API root.
// fetchErr is the error of the most recent request to it, if any.
func Upstream(ctx context.Context, name, endpoint string, fetchErr error) types.UpstreamStatus {
	st := types.UpstreamStatus{
		Name:     name,
		Endpoint: endpoint,
		OK:       fetchErr == nil,
		Cert:     Probe(ctx, endpoint),
	}
	if fetchErr != nil {
		st.Error = fetchErr.Error()
	}
	return st
}

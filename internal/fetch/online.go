package fetch

import (
	"context"
	"net"
	"net/url"
	"time"
)

// DefaultProbeTimeout bounds a single connectivity probe.
const DefaultProbeTimeout = 2 * time.Second

// OnlineProbe reports connectivity by opening a TCP connection to Addr.
type OnlineProbe struct {
	Addr    string
	Timeout time.Duration
}

// NewOnlineProbe probes the host of endpoint, using the scheme's default port
// when none is given. An unparsable endpoint yields a probe that always
// reports online so that request errors surface instead.
func NewOnlineProbe(endpoint string) *OnlineProbe {
	p := &OnlineProbe{Timeout: DefaultProbeTimeout}
	u, err := url.Parse(endpoint)
	if err != nil || u.Hostname() == "" {
		return p
	}
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	p.Addr = net.JoinHostPort(u.Hostname(), port)
	return p
}

func (p *OnlineProbe) Online(ctx context.Context) bool {
	if p.Addr == "" {
		return true
	}
	d := net.Dialer{Timeout: p.Timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

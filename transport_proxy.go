package mqttflow

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"golang.org/x/net/proxy"
)

// ProxyDialer dials broker connections through a SOCKS5 proxy. It implements
// ContextDialer and composes with TCPDialer via its Forward field.
type ProxyDialer struct {
	proxyAddr string
	auth      *proxy.Auth
	forward   net.Dialer
}

// NewProxyDialer creates a proxy dialer from a socks5:// URL. Credentials
// may be embedded in the URL or passed separately.
func NewProxyDialer(proxyURL, username, password string) (*ProxyDialer, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}

	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return nil, fmt.Errorf("unsupported proxy scheme: %s", u.Scheme)
	}

	if username == "" && u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
	}

	d := &ProxyDialer{proxyAddr: u.Host}
	if username != "" {
		d.auth = &proxy.Auth{User: username, Password: password}
	}
	return d, nil
}

// DialContext connects to the target address through the proxy.
func (d *ProxyDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	socks, err := proxy.SOCKS5("tcp", d.proxyAddr, d.auth, &d.forward)
	if err != nil {
		return nil, err
	}

	if cd, ok := socks.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, addr)
	}
	return socks.Dial(network, addr)
}

package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Barba02/TALight/errs"
	"github.com/Barba02/TALight/pump"
	"github.com/gorilla/websocket"
)

const (
	dialTimeout = 30 * time.Second

	readBufferSize  = 4096 * 4
	writeBufferSize = 4096 * 4
)

type DialOptions struct {
	// CACertPath adds a PEM CA bundle to the trust roots for wss URLs.
	CACertPath string

	// Insecure skips server certificate verification.
	Insecure bool

	// ProxyURL routes the handshake through an HTTP proxy when non-empty.
	ProxyURL string

	Logger *slog.Logger
}

// Dial opens a ws/wss connection and returns it together with the stream
// capability for the socket under it. The caller owns the connection.
func Dial(rawURL string, opts DialOptions) (*websocket.Conn, pump.Control, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: opts.Insecure, //nolint:gosec // explicit operator opt-in
	}
	if opts.CACertPath != "" {
		caCertFile, err := os.ReadFile(opts.CACertPath)
		if err != nil {
			return nil, nil, errs.WithStack(err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCertFile) {
			return nil, nil, errs.WithStack(fmt.Errorf("no certificate in %s", opts.CACertPath))
		}
		tlsConfig.RootCAs = pool
	}

	dialer := &websocket.Dialer{
		Proxy: func(*http.Request) (*url.URL, error) {
			if opts.ProxyURL == "" {
				return nil, nil
			}
			return url.Parse(opts.ProxyURL)
		},
		TLSClientConfig:  tlsConfig,
		HandshakeTimeout: dialTimeout,
		ReadBufferSize:   readBufferSize,
		WriteBufferSize:  writeBufferSize,
	}

	conn, resp, err := dialer.Dial(rawURL, nil)
	if err != nil {
		// A rejected handshake carries the server's reason in the response
		// body; gorilla's error alone is just "bad handshake".
		if resp != nil {
			reason, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			_ = resp.Body.Close()
			if r := strings.TrimSpace(string(reason)); r != "" {
				return nil, nil, errs.WithStack(fmt.Errorf("%w: %s", err, r))
			}
		}
		return nil, nil, errs.WithStack(err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	ctrl, err := NewControl(conn.NetConn())
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	if opts.Logger != nil {
		opts.Logger.Info("connection created", "url", rawURL)
	}
	return conn, ctrl, nil
}

// SessionURL appends a ?target= query to a base websocket URL, addressing a
// server that allows dynamic targets.
func SessionURL(baseURL, target string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", errs.WithStack(err)
	}
	q := u.Query()
	q.Set("target", target)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

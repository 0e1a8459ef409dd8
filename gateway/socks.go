// Package gateway exposes a local SOCKS5 listener whose CONNECT requests are
// carried over the websocket relay: one fresh websocket session per accepted
// connection, bridged by one pump each. The far side must be a relay server
// allowing dynamic targets.
package gateway

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net"
	"strings"

	"github.com/Barba02/TALight/errs"
	"github.com/Barba02/TALight/pump"
	"github.com/Barba02/TALight/transport"
	"github.com/things-go/go-socks5"
	"github.com/things-go/go-socks5/statute"
)

type Options struct {
	// BaseURL is the relay server's websocket URL, without a target query.
	BaseURL string

	Dial transport.DialOptions
	Pump pump.Options

	Logger *slog.Logger
}

// ListenAndServe runs the SOCKS5 gateway until the listener fails.
func ListenAndServe(addr string, opts Options) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errs.WithStack(err)
	}
	return Serve(listener, opts)
}

// Serve runs the gateway on an existing listener.
func Serve(listener net.Listener, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := socks5.NewServer(
		socks5.WithLogger(socks5.NewLogger(log.New(io.Discard, "", 0))),
		socks5.WithConnectHandle(connectHandler(opts, logger)),
	)

	logger.Info("serving socks5 gateway", "address", "socks5://"+listener.Addr().String(), "relay", opts.BaseURL)
	return errs.WithStack(server.Serve(listener))
}

func connectHandler(opts Options, logger *slog.Logger) func(context.Context, io.Writer, *socks5.Request) error {
	return func(ctx context.Context, writer io.Writer, request *socks5.Request) error {
		target := request.DstAddr.String()
		sessionLogger := logger.With("target", target)

		sessionURL, err := transport.SessionURL(opts.BaseURL, target)
		if err != nil {
			_ = socks5.SendReply(writer, statute.RepServerFailure, nil)
			return err
		}

		conn, ctrl, err := transport.Dial(sessionURL, opts.Dial)
		if err != nil {
			sessionLogger.Warn("relay session failed", "error", err)
			if replyErr := socks5.SendReply(writer, replyCode(err), nil); replyErr != nil {
				return replyErr
			}
			return err
		}
		defer func() {
			_ = conn.Close()
		}()

		if err := socks5.SendReply(writer, statute.RepSuccess, conn.LocalAddr()); err != nil {
			return err
		}

		sessionOpts := opts.Pump
		sessionOpts.Logger = sessionLogger
		return pump.Run(conn, ctrl, pump.Endpoint{Reader: request.Reader, Writer: writer}, sessionOpts)
	}
}

// replyCode maps a failed relay dial to the closest SOCKS reply. The relay
// rejects the handshake when it cannot reach the target, and the dial error
// carries the rejection reason, so the target-side distinction survives.
func replyCode(err error) uint8 {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "refused"):
		return statute.RepConnectionRefused
	case strings.Contains(msg, "network is unreachable"):
		return statute.RepNetworkUnreachable
	default:
		return statute.RepHostUnreachable
	}
}

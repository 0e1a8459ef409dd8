package transport

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/exec"

	"github.com/Barba02/TALight/errs"
	"github.com/Barba02/TALight/pump"
	"github.com/gorilla/websocket"
)

// ExecResolver spawns one child process per session and bridges its stdio.
func ExecResolver(argv []string, usePTY bool, opts pump.Options) Resolver {
	return func(*http.Request) (Session, error) {
		return Session{
			Run: func(conn *websocket.Conn, ctrl pump.Control, logger *slog.Logger) error {
				sessionOpts := opts
				sessionOpts.Logger = logger
				cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // operator-configured command
				if usePTY {
					return pump.RunProcessPTY(conn, ctrl, cmd, sessionOpts)
				}
				return pump.RunProcess(conn, ctrl, cmd, sessionOpts)
			},
		}, nil
	}
}

// TargetResolver bridges every session to the same TCP endpoint.
func TargetResolver(target string, opts pump.Options) Resolver {
	return func(*http.Request) (Session, error) {
		return tcpSession(target, opts)
	}
}

// DynamicResolver bridges each session to the TCP endpoint named by its
// ?target= query. Only for servers that deliberately proxy for their clients.
func DynamicResolver(opts pump.Options) Resolver {
	return func(r *http.Request) (Session, error) {
		target := r.URL.Query().Get("target")
		if target == "" {
			return Session{}, errors.New("missing target")
		}
		return tcpSession(target, opts)
	}
}

// tcpSession dials before the upgrade: an unreachable target rejects the
// handshake instead of producing a session that dies on its first write.
func tcpSession(target string, opts pump.Options) (Session, error) {
	tcp, err := net.Dial("tcp", target)
	if err != nil {
		return Session{}, errs.WithStack(err)
	}

	return Session{
		Run: func(conn *websocket.Conn, ctrl pump.Control, logger *slog.Logger) error {
			defer func() {
				_ = tcp.Close()
			}()
			sessionOpts := opts
			sessionOpts.Logger = logger
			return pump.Run(conn, ctrl, pump.Endpoint{Reader: tcp, Writer: tcp}, sessionOpts)
		},
		Discard: func() {
			_ = tcp.Close()
		},
	}, nil
}

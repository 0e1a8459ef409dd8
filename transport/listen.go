package transport

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"

	"github.com/Barba02/TALight/errs"
	"github.com/Barba02/TALight/pump"
	"github.com/gorilla/websocket"
)

// Session bridges one upgraded connection until it ends.
type Session struct {
	// Run bridges conn until the session ends.
	Run func(conn *websocket.Conn, ctrl pump.Control, logger *slog.Logger) error

	// Discard releases whatever Run would have consumed, for the paths where
	// the upgrade never happens. May be nil.
	Discard func()
}

// Resolver turns an incoming upgrade request into the session that will serve
// it. Returning an error rejects the request with 502 before the upgrade, so
// the dialing peer sees a failed handshake instead of an instantly dead
// session.
type Resolver func(r *http.Request) (Session, error)

// Server accepts websocket connections and runs one bridge session per
// connection.
type Server struct {
	addr     string
	path     string
	resolver Resolver
	logger   *slog.Logger

	certFile string
	keyFile  string

	listener   net.Listener
	httpServer *http.Server
}

type ServerOption func(*Server)

// WithTLS serves wss with the given certificate pair.
func WithTLS(certFile, keyFile string) ServerOption {
	return func(s *Server) {
		s.certFile = certFile
		s.keyFile = keyFile
	}
}

func NewServer(addr, path string, resolver Resolver, logger *slog.Logger, options ...ServerOption) *Server {
	s := &Server{
		addr:     addr,
		path:     path,
		resolver: resolver,
		logger:   logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Listen binds the address; Serve blocks afterwards. Split so callers can
// learn the bound port before serving.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errs.WithStack(err)
	}
	s.listener = listener

	handler := http.NewServeMux()
	handler.HandleFunc(s.path, s.serveWs)

	s.httpServer = &http.Server{
		Handler:  handler,
		ErrorLog: log.New(io.Discard, "", 0),
	}
	return nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) Serve() error {
	s.logger.Info("serving websocket", "address", s.listener.Addr().String(), "path", s.path, "tls", s.certFile != "")
	if s.certFile != "" {
		return errs.WithStack(s.httpServer.ServeTLS(s.listener, s.certFile, s.keyFile))
	}
	return errs.WithStack(s.httpServer.Serve(s.listener))
}

func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

func (s *Server) Shutdown() error {
	return errs.WithStack(s.httpServer.Shutdown(context.Background()))
}

func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With("peer", r.RemoteAddr)

	session, err := s.resolver(r)
	if err != nil {
		logger.Warn("session rejected", "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	upgrade := websocket.Upgrader{
		ReadBufferSize:  readBufferSize,
		WriteBufferSize: writeBufferSize,
	}

	conn, err := upgrade.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		logger.Error("upgrade failed", "error", errs.WithStack(err))
		if session.Discard != nil {
			session.Discard()
		}
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	ctrl, err := NewControl(conn.NetConn())
	if err != nil {
		logger.Error("no stream control", "error", err)
		if session.Discard != nil {
			session.Discard()
		}
		return
	}

	logger.Info("session opened")
	if err := session.Run(conn, ctrl, logger); err != nil {
		logger.Warn("session ended", "error", err)
		return
	}
	logger.Info("session closed")
}

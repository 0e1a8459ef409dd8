package pump

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Barba02/TALight/errs"
	"github.com/gorilla/websocket"
)

const (
	// IdleTimeout ends a session after this long without data in either direction.
	IdleTimeout = 60 * time.Second

	// TransferBufferSize bounds a single outbound chunk.
	TransferBufferSize = 1 << 20

	chunkQueueSize = 512
)

// MessageConn is the framed side of the bridge: the part of *websocket.Conn
// the pump needs. Binary messages carry relay data, everything else is
// control noise.
type MessageConn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
}

// Control adjusts the stream under the websocket framing. The same two calls
// work whether the stream is a bare TCP connection or a TLS-wrapped one; the
// implementations in the transport package do the unwrapping.
type Control interface {
	// SetReadDeadline with the zero time clears the deadline.
	SetReadDeadline(t time.Time) error
	SetNoDelay(noDelay bool) error
}

// Endpoint is the local side of the bridge: two independent byte-stream
// halves. Once Run starts, the Reader belongs to the outbound pump and the
// Writer to the bridge loop.
type Endpoint struct {
	Reader io.Reader
	Writer io.Writer
}

type Options struct {
	// Echo, when non-nil, receives every payload as best-effort text with a
	// "> " (sent) or "< " (received) prefix.
	Echo io.Writer

	// Idle overrides IdleTimeout when positive.
	Idle time.Duration

	Logger *slog.Logger
}

type inbound struct {
	kind int
	data []byte
	err  error
}

// Run bridges conn and local until the remote closes, the local reader hits
// end of data, either direction fails, or the session stays idle too long.
// The conn is handed back with its read deadline cleared and nodelay restored;
// closing it is the caller's business.
//
// A nil error means the session ended cleanly (remote close, local EOF, or
// idle timeout).
func Run(conn MessageConn, ctrl Control, local Endpoint, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	idle := opts.Idle
	if idle <= 0 {
		idle = IdleTimeout
	}

	if err := ctrl.SetReadDeadline(time.Time{}); err != nil {
		return errs.WithStack(err)
	}
	if err := ctrl.SetNoDelay(true); err != nil {
		return errs.WithStack(err)
	}

	done := make(chan struct{})
	defer close(done)

	chunks := make(chan []byte, chunkQueueSize)
	go pumpOutbound(local.Reader, chunks, done)

	frames := make(chan inbound)
	go func() {
		for {
			kind, data, err := conn.ReadMessage()
			select {
			case frames <- inbound{kind, data, err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	timer := time.NewTimer(idle)
	defer timer.Stop()

	var reason error
loop:
	for {
		select {
		case in := <-frames:
			if in.err != nil {
				reason = in.err
				break loop
			}
			if in.kind != websocket.BinaryMessage {
				continue
			}
			echoPayload(opts.Echo, "< ", in.data)
			if _, err := local.Writer.Write(in.data); err != nil {
				reason = errs.WithStack(err)
				break loop
			}
			timer.Reset(idle)

		case chunk, ok := <-chunks:
			if !ok {
				// local end of data
				break loop
			}
			echoPayload(opts.Echo, "> ", chunk)
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				reason = errs.WithStack(err)
				break loop
			}
			timer.Reset(idle)

		case <-timer.C:
			logger.Info("session idle", "timeout", idle)
			break loop
		}
	}

	// Failing to restore the socket is reported, never swallowed, but it must
	// not mask how the session ended.
	if err := ctrl.SetReadDeadline(time.Time{}); err != nil {
		logger.Error("clear read deadline", "error", errs.WithStack(err))
	}
	if err := ctrl.SetNoDelay(false); err != nil {
		logger.Error("restore nodelay", "error", errs.WithStack(err))
	}

	if reason != nil && websocket.IsCloseError(reason, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		logger.Debug("session closed by peer")
		return nil
	}

	logger.Debug("session ended", "error", reason)
	return reason
}

func echoPayload(w io.Writer, prefix string, data []byte) {
	if w == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "%s%s", prefix, strings.ToValidUTF8(string(data), "�"))
}

package transport

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/Barba02/TALight/errs"
	"github.com/Barba02/TALight/pump"
)

// NewControl picks the stream capability implementation for the connection
// under a websocket: plain TCP or TLS over TCP. Anything else cannot carry a
// bridge session and is a setup error.
func NewControl(conn net.Conn) (pump.Control, error) {
	switch c := conn.(type) {
	case *net.TCPConn:
		return tcpControl{c}, nil
	case *tls.Conn:
		tcp, ok := c.NetConn().(*net.TCPConn)
		if !ok {
			return nil, errs.WithStack(fmt.Errorf("tls over %T carries no nodelay control", c.NetConn()))
		}
		return tlsControl{conn: c, tcp: tcp}, nil
	default:
		return nil, errs.WithStack(fmt.Errorf("unsupported stream type %T", conn))
	}
}

type tcpControl struct {
	conn *net.TCPConn
}

func (c tcpControl) SetReadDeadline(t time.Time) error {
	return errs.WithStack(c.conn.SetReadDeadline(t))
}

func (c tcpControl) SetNoDelay(noDelay bool) error {
	return errs.WithStack(c.conn.SetNoDelay(noDelay))
}

// tlsControl sets deadlines on the TLS layer, which forwards them to the raw
// socket, and reaches under it for the TCP-only nodelay option.
type tlsControl struct {
	conn *tls.Conn
	tcp  *net.TCPConn
}

func (c tlsControl) SetReadDeadline(t time.Time) error {
	return errs.WithStack(c.conn.SetReadDeadline(t))
}

func (c tlsControl) SetNoDelay(noDelay bool) error {
	return errs.WithStack(c.tcp.SetNoDelay(noDelay))
}

package pump

import (
	"errors"
	"io"
	"net"
	"time"
)

type wsFrame struct {
	kind int
	data []byte
	err  error
}

// mockConn scripts the framed side: frames pushed into in come out of
// ReadMessage, frames the pump sends land in out.
type mockConn struct {
	in         chan wsFrame
	out        chan wsFrame
	failWrites bool
	writeCalls int
}

func newMockConn() *mockConn {
	return &mockConn{
		in:  make(chan wsFrame, 16),
		out: make(chan wsFrame, 64),
	}
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	f, ok := <-m.in
	if !ok {
		return 0, nil, net.ErrClosed
	}
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.kind, f.data, nil
}

func (m *mockConn) WriteMessage(kind int, data []byte) error {
	m.writeCalls++
	if m.failWrites {
		return errors.New("mock write failure")
	}
	m.out <- wsFrame{kind: kind, data: data}
	return nil
}

func (m *mockConn) drainOut() []byte {
	var all []byte
	for {
		select {
		case f := <-m.out:
			all = append(all, f.data...)
		default:
			return all
		}
	}
}

// mockControl records every capability call so tests can check the
// setup/teardown contract.
type mockControl struct {
	deadlines   []time.Time
	nodelays    []bool
	failNoDelay bool
}

func (c *mockControl) SetReadDeadline(t time.Time) error {
	c.deadlines = append(c.deadlines, t)
	return nil
}

func (c *mockControl) SetNoDelay(noDelay bool) error {
	c.nodelays = append(c.nodelays, noDelay)
	if c.failNoDelay {
		return errors.New("mock nodelay failure")
	}
	return nil
}

// scriptReader yields the scripted chunks one per Read, then either returns
// final (EOF, an error) or blocks until the test closes unblock.
type scriptReader struct {
	chunks  [][]byte
	final   error
	unblock chan struct{}

	index int
}

func (r *scriptReader) Read(p []byte) (int, error) {
	if r.index < len(r.chunks) {
		n := copy(p, r.chunks[r.index])
		r.index++
		return n, nil
	}
	if r.final != nil {
		return 0, r.final
	}
	<-r.unblock
	return 0, io.EOF
}

// gatedReader holds the first Read until gate is closed, to pin down the
// relative order of the two directions in a test.
type gatedReader struct {
	gate   <-chan struct{}
	inner  io.Reader
	opened bool
}

func (g *gatedReader) Read(p []byte) (int, error) {
	if !g.opened {
		<-g.gate
		g.opened = true
	}
	return g.inner.Read(p)
}

// notifyWriter hands every written payload to the test over a channel.
type notifyWriter struct {
	data chan []byte
}

func (w *notifyWriter) Write(p []byte) (int, error) {
	owned := make([]byte, len(p))
	copy(owned, p)
	w.data <- owned
	return len(p), nil
}

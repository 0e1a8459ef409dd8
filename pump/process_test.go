package pump

import (
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
}

func Test_RunProcess_relayAndExit(t *testing.T) {
	requireShell(t)

	conn := newMockConn()
	t.Cleanup(func() { close(conn.in) })

	cmd := exec.Command("sh", "-c", "printf ready")
	if err := RunProcess(conn, &mockControl{}, cmd, testOptions); err != nil {
		t.Errorf("RunProcess = %v, want nil after child exit", err)
	}

	if got := string(conn.drainOut()); got != "ready" {
		t.Errorf("relayed %q, want %q", got, "ready")
	}
	if cmd.ProcessState == nil {
		t.Error("child was not reaped")
	}
}

func Test_RunProcess_roundTrip(t *testing.T) {
	requireShell(t)

	conn := newMockConn()

	errCh := make(chan error, 1)
	go func() {
		errCh <- RunProcess(conn, &mockControl{}, exec.Command("cat"), testOptions)
	}()

	conn.in <- wsFrame{kind: websocket.BinaryMessage, data: []byte("ping\n")}

	select {
	case f := <-conn.out:
		if string(f.data) != "ping\n" {
			t.Errorf("cat echoed %q, want %q", f.data, "ping\n")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no echo from child")
	}

	conn.in <- closeFrame()
	if err := <-errCh; err != nil {
		t.Errorf("RunProcess = %v, want nil on clean close", err)
	}
}

func Test_RunProcess_killsLingeringChild(t *testing.T) {
	requireShell(t)

	conn := newMockConn()
	t.Cleanup(func() { close(conn.in) })

	opts := testOptions
	opts.Idle = 50 * time.Millisecond

	cmd := exec.Command("sleep", "600")
	start := time.Now()
	if err := RunProcess(conn, &mockControl{}, cmd, opts); err != nil {
		t.Errorf("RunProcess = %v, want nil on idle timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 30*time.Second {
		t.Fatalf("took %v, child was not killed", elapsed)
	}
	if cmd.ProcessState == nil {
		t.Error("child was not reaped")
	}
}

func Test_RunProcess_pipesUnavailable(t *testing.T) {
	requireShell(t)

	conn := newMockConn()
	cmd := exec.Command("cat")
	if _, err := cmd.StdinPipe(); err != nil {
		t.Fatal(err)
	}

	// stdin already claimed: acquisition must fail before the child starts
	if err := RunProcess(conn, &mockControl{}, cmd, testOptions); err == nil {
		t.Error("RunProcess = nil, want pipe acquisition error")
	}
	if cmd.Process != nil {
		t.Error("child was started despite failed acquisition")
	}
}

func Test_RunProcessPTY_relay(t *testing.T) {
	requireShell(t)

	conn := newMockConn()
	t.Cleanup(func() { close(conn.in) })

	cmd := exec.Command("sh", "-c", "printf ready")
	if err := RunProcessPTY(conn, &mockControl{}, cmd, testOptions); err != nil {
		t.Errorf("RunProcessPTY = %v, want nil after child exit", err)
	}

	if got := string(conn.drainOut()); got != "ready" {
		t.Errorf("relayed %q, want %q", got, "ready")
	}
}

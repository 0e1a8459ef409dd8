package errs

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
)

func Test_WithSource(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))

	err := func() error {
		return WithSource(fmt.Errorf("bombed"))
	}()

	logger.Warn("Test_WithSource", "error", err)

	if err.Error() != "bombed" {
		t.Errorf("Error() = %v, want %v", err.Error(), "bombed")
	}
}

func Test_WithSource_nil(t *testing.T) {
	if err := WithSource(nil); err != nil {
		t.Errorf("WithSource(nil) = %v, want nil", err)
	}
	if err := WithStack(nil); err != nil {
		t.Errorf("WithStack(nil) = %v, want nil", err)
	}
}

type myError struct {
	code int
}

func (e *myError) Error() string {
	return fmt.Sprintf("myError:%d", e.code)
}

func Test_WithStack_errorsAs(t *testing.T) {
	err := WithStack(&myError{code: 1})

	var myErr *myError
	if !errors.As(err, &myErr) {
		t.Fatal("errors.As failed to unwrap")
	}
	if myErr.code != 1 {
		t.Errorf("code = %d, want 1", myErr.code)
	}
}

func Test_WithStack_errorsIs(t *testing.T) {
	err := func() error {
		return WithStack(io.EOF)
	}()

	if !errors.Is(err, io.EOF) {
		t.Error("errors.Is(err, io.EOF) = false, want true")
	}
}

func Test_WithStack_renderTwice(t *testing.T) {
	err := WithStack(errors.New("boomed"))

	valuer := err.(slog.LogValuer)
	first := valuer.LogValue().Group()
	second := valuer.LogValue().Group()

	if len(first) < 2 {
		t.Fatalf("LogValue rendered %d attrs, want reason plus frames", len(first))
	}
	if len(second) != len(first) {
		t.Errorf("second render has %d attrs, want %d", len(second), len(first))
	}
}

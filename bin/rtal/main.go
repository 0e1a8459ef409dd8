// rtal bridges a websocket relay to a local byte stream: its own stdio, a
// spawned program, a TCP endpoint, or a SOCKS5 gateway spawning one relay
// session per connection.
//
// Usage:
//
//	rtal [flags]                     bridge own stdin/stdout
//	rtal [flags] program [args...]   bridge a spawned program's stdio
//	rtal [flags] -target host:port   bridge a dialed TCP endpoint
//	rtal [flags] -socksAddr addr     serve a local SOCKS5 gateway
package main

import (
	"flag"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/Barba02/TALight/gateway"
	"github.com/Barba02/TALight/logs"
	"github.com/Barba02/TALight/pump"
	"github.com/Barba02/TALight/transport"
	"github.com/gorilla/websocket"
	"github.com/tebeka/atexit"
)

var logLevel = flag.String("logLevel", "Info", "Set log level: [Debug,Info,Warn,Error,Off]")
var logFile = flag.String("logFile", "run/rtal.log", "Log file path")

var wsURL = flag.String("wsURL", "ws://127.0.0.1:8008/ws", "websocket relay URL")
var caCertPath = flag.String("caCertPath", "", "CA certificate file path for wss")
var insecure = flag.Bool("insecure", false, "skip server certificate verification")
var proxyURL = flag.String("proxyURL", "", "HTTP proxy URL for the handshake")

var echo = flag.Bool("echo", false, "echo relayed traffic to stdout, prefixed by direction")
var usePTY = flag.Bool("pty", false, "run the bridged program on a pseudo-terminal")
var target = flag.String("target", "", "bridge a dialed TCP endpoint instead of stdio")
var socksAddr = flag.String("socksAddr", "", "serve a SOCKS5 gateway on this address")

func main() {
	flag.Parse()

	logger := logs.GetLogger(*logFile, *logLevel)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		atexit.Exit(0)
	}()

	dialOpts := transport.DialOptions{
		CACertPath: *caCertPath,
		Insecure:   *insecure,
		ProxyURL:   *proxyURL,
		Logger:     logger,
	}

	opts := pump.Options{Logger: logger}
	if *echo {
		opts.Echo = os.Stdout
	}

	if *socksAddr != "" {
		err := gateway.ListenAndServe(*socksAddr, gateway.Options{
			BaseURL: *wsURL,
			Dial:    dialOpts,
			Pump:    opts,
			Logger:  logger,
		})
		logger.Error("gateway stopped", "error", err)
		atexit.Exit(1)
	}

	conn, ctrl, err := transport.Dial(*wsURL, dialOpts)
	if err != nil {
		logger.Error("failed to dial relay", "url", *wsURL, "error", err)
		atexit.Exit(1)
	}
	defer func() {
		_ = conn.Close()
	}()

	switch {
	case *target != "":
		var tcp net.Conn
		tcp, err = net.Dial("tcp", *target)
		if err != nil {
			logger.Error("failed to dial target", "target", *target, "error", err)
			atexit.Exit(1)
		}
		defer func() {
			_ = tcp.Close()
		}()
		err = pump.Run(conn, ctrl, pump.Endpoint{Reader: tcp, Writer: tcp}, opts)

	case flag.NArg() > 0:
		argv := flag.Args()
		cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // user-provided program
		cmd.Stderr = os.Stderr
		if *usePTY {
			err = pump.RunProcessPTY(conn, ctrl, cmd, opts)
		} else {
			err = pump.RunProcess(conn, ctrl, cmd, opts)
		}

	default:
		err = pump.Run(conn, ctrl, pump.Endpoint{Reader: os.Stdin, Writer: os.Stdout}, opts)
	}

	// best-effort goodbye before the deferred close
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)

	if err != nil {
		logger.Error("session failed", "error", err)
		atexit.Exit(1)
	}
}

// rtald accepts websocket relay connections and bridges each one to a local
// byte stream: a freshly spawned program, a fixed TCP endpoint, or the TCP
// endpoint the client asks for.
//
// Usage:
//
//	rtald [flags] program [args...]   spawn one program per session
//	rtald [flags] -target host:port   bridge every session to one endpoint
//	rtald [flags] -dynamicTargets     bridge to the client-chosen ?target=
package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/Barba02/TALight/cert"
	"github.com/Barba02/TALight/logs"
	"github.com/Barba02/TALight/pump"
	"github.com/Barba02/TALight/transport"
	"github.com/tebeka/atexit"
)

var logLevel = flag.String("logLevel", "Info", "Set log level: [Debug,Info,Warn,Error,Off]")
var logFile = flag.String("logFile", "run/rtald.log", "Log file path")

var listenAddr = flag.String("listenAddr", "127.0.0.1:8008", "websocket listen address")
var wsPath = flag.String("wsPath", "/ws", "websocket endpoint path")
var tlsDir = flag.String("tlsDir", "", "serve wss with certificates from this directory, generating them when missing")

var usePTY = flag.Bool("pty", false, "run spawned programs on a pseudo-terminal")
var target = flag.String("target", "", "bridge every session to this TCP endpoint")
var dynamicTargets = flag.Bool("dynamicTargets", false, "let clients pick the TCP target via the target query")

func main() {
	flag.Parse()

	logger := logs.GetLogger(*logFile, *logLevel)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		atexit.Exit(0)
	}()

	opts := pump.Options{Logger: logger}

	var resolver transport.Resolver
	switch {
	case *dynamicTargets:
		resolver = transport.DynamicResolver(opts)
	case *target != "":
		resolver = transport.TargetResolver(*target, opts)
	case flag.NArg() > 0:
		resolver = transport.ExecResolver(flag.Args(), *usePTY, opts)
	default:
		logger.Error("nothing to serve: give a program, -target, or -dynamicTargets")
		atexit.Exit(2)
	}

	var options []transport.ServerOption
	if *tlsDir != "" {
		hosts := []string{"127.0.0.1", "localhost"}
		if host, _, err := net.SplitHostPort(*listenAddr); err == nil && host != "" {
			hosts = append(hosts, host)
		}

		certFile, keyFile, err := cert.Ensure("rtald", hosts, *tlsDir)
		if err != nil {
			logger.Error("failed to prepare certificates", "dir", *tlsDir, "error", err)
			atexit.Exit(1)
		}
		options = append(options, transport.WithTLS(certFile, keyFile))
	}

	server := transport.NewServer(*listenAddr, *wsPath, resolver, logger, options...)
	if err := server.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		atexit.Exit(1)
	}
}

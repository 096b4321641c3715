// Command codebridge is the local bridge process (spec.md §1): it
// multiplexes a single assistant, addressed over newline-delimited
// JSON-RPC on stdin/stdout, across any number of browser tabs and
// extension peers connected over a framed websocket endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.mau.fi/util/random"

	"github.com/codebridgehq/codebridge/internal/bridgelog"
	"github.com/codebridgehq/codebridge/internal/config"
	"github.com/codebridgehq/codebridge/internal/controlplane"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "codebridge: "+err.Error())
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "optional YAML file overlaying environment configuration")
	flag.Parse()

	cfg := config.FromEnv()
	cfg, err := config.MergeYAMLFile(cfg, *configPath)
	if err != nil {
		return fmt.Errorf("loading config file: %w", err)
	}
	generatedToken := cfg.Token == ""
	if generatedToken {
		cfg.Token = random.String(24)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Port)))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", cfg.Port, err)
	}
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		cfg.Port = tcpAddr.Port
	}

	log := bridgelog.New(cfg.Debug)
	if generatedToken {
		log.Warn().Msg("BRIDGE_TOKEN not set; generated a one-time token for this run")
	}
	bridge := controlplane.New(cfg, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	httpSrv := &http.Server{Handler: bridge.HTTPHandler()}
	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	rpcErrCh := make(chan error, 1)
	go func() {
		rpcErrCh <- bridge.Run(ctx, os.Stdin, os.Stdout)
	}()

	select {
	case err := <-errCh:
		cancel()
		<-rpcErrCh
		return fmt.Errorf("peer listener: %w", err)
	case err := <-rpcErrCh:
		_ = httpSrv.Close()
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("assistant transport: %w", err)
		}
		return nil
	}
}

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"typedown/internal/lsp"
)

var (
	lspPort int
	lspHost string
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Start the typedown Language Server (stdio, or TCP with --port)",
	Long: `lsp starts a JSON-RPC Language Server Protocol session.

With no flags it communicates over stdin/stdout, the mode editors launch
a server in. --port switches to listening on a TCP socket instead, for
editors or test harnesses that prefer a socket transport.`,
	RunE: runLSP,
}

func init() {
	lspCmd.Flags().IntVar(&lspPort, "port", 0, "listen on this TCP port instead of stdio")
	lspCmd.Flags().StringVar(&lspHost, "host", "127.0.0.1", "host to bind when --port is set")
}

func runLSP(cmd *cobra.Command, args []string) error {
	root, err := resolvePath()
	if err != nil {
		return err
	}
	server := lsp.New(root)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if lspPort == 0 {
		if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil && err != context.Canceled {
			return fmt.Errorf("lsp: %w", err)
		}
		return nil
	}

	addr := fmt.Sprintf("%s:%d", lspHost, lspPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("lsp: listen on %s: %w", addr, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("lsp: accept: %w", err)
	}
	defer conn.Close()

	if err := server.Serve(ctx, conn, conn); err != nil && err != context.Canceled {
		return fmt.Errorf("lsp: %w", err)
	}
	return nil
}

// Command confserver runs the text conferencing service: a
// multi-client TCP server with a static credential table, in-memory
// session registry, and a background idle-client reaper.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/tanmaysharma2001/textconf/internal/auth"
	"github.com/tanmaysharma2001/textconf/internal/config"
	"github.com/tanmaysharma2001/textconf/internal/reaper"
	"github.com/tanmaysharma2001/textconf/internal/registry"
	"github.com/tanmaysharma2001/textconf/internal/server"
	"github.com/tanmaysharma2001/textconf/pkg/logger"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <port>\n", os.Args[0])
	}
	flag.Parse()

	cfg := config.Load()
	port := cfg.ConfServer.Port
	if flag.NArg() == 1 {
		port = flag.Arg(0)
	}

	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		logger.Fatal("confserver: bind failed: %v", err)
	}
	logger.Info("confserver: listening on :%s", port)

	regs := registry.New(cfg.ConfServer.MaxClients, cfg.ConfServer.MaxSessions)
	authn := auth.New()
	srv := server.New(regs, authn)
	rp := reaper.New(regs, cfg.ConfServer.ReaperInterval, cfg.ConfServer.IdleTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go rp.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("confserver: shutting down")
		cancel()
		ln.Close()
	}()

	if err := srv.Serve(ctx, ln); err != nil {
		logger.Error("confserver: serve: %v", err)
	}
}

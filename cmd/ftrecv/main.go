// Command ftrecv is the file-transfer receiver: it binds a UDP
// endpoint, accepts the handshake, and reassembles exactly one
// incoming file into the configured saved directory.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/tanmaysharma2001/textconf/internal/config"
	"github.com/tanmaysharma2001/textconf/internal/ftreceiver"
	"github.com/tanmaysharma2001/textconf/pkg/logger"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <port>\n", os.Args[0])
		os.Exit(1)
	}
	port := os.Args[1]

	cfg := config.Load()
	if info, err := os.Stat(cfg.FileTransfer.SavedDir); err != nil || !info.IsDir() {
		logger.Fatal("ftrecv: saved directory %s does not exist", cfg.FileTransfer.SavedDir)
	}

	pconn, err := net.ListenPacket("udp", ":"+port)
	if err != nil {
		logger.Fatal("ftrecv: bind failed: %v", err)
	}
	defer pconn.Close()
	logger.Info("ftrecv: listening on :%s", port)

	recv := ftreceiver.New(pconn, cfg.FileTransfer)
	if err := recv.Run(); err != nil {
		logger.Error("ftrecv: %v", err)
		os.Exit(1)
	}
	logger.Info("ftrecv: transfer complete")
}

// Command ftsend is the file-transfer sender: it reads one
// "ftp <filename>" line from stdin and delivers that file to a
// running ftrecv over UDP.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/tanmaysharma2001/textconf/internal/config"
	"github.com/tanmaysharma2001/textconf/internal/ftsender"
	"github.com/tanmaysharma2001/textconf/pkg/logger"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <host> <port>\n", os.Args[0])
		os.Exit(1)
	}
	host, port := os.Args[1], os.Args[2]

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		logger.Error("ftsend: reading stdin: %v", err)
		os.Exit(1)
	}
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "ftp ") {
		fmt.Fprintln(os.Stderr, "expected input of the form: ftp <filename>")
		os.Exit(1)
	}
	filename := strings.TrimSpace(strings.TrimPrefix(line, "ftp "))

	if _, err := os.Stat(filename); err != nil {
		logger.Error("ftsend: %v", err)
		os.Exit(1)
	}

	conn, err := net.Dial("udp", net.JoinHostPort(host, port))
	if err != nil {
		logger.Error("ftsend: dial: %v", err)
		os.Exit(1)
	}
	defer conn.Close()

	cfg := config.Load()
	sender := ftsender.New(conn, cfg.FileTransfer)
	if err := sender.Send(filename); err != nil {
		logger.Error("ftsend: %v", err)
		os.Exit(1)
	}
	logger.Info("ftsend: transfer of %s complete", filename)
}

package ftsender

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tanmaysharma2001/textconf/internal/config"
	"github.com/tanmaysharma2001/textconf/internal/fragment"
)

func testConfig() config.FileTransferConfig {
	return config.FileTransferConfig{
		FragmentSize:   1000,
		DropRate:       0,
		RetryAttempts:  5,
		InitialTimeout: 100 * time.Millisecond,
		MaxTimeout:     400 * time.Millisecond,
		SavedDir:       "./saved",
	}
}

// fakeServer plays the receiver side of the handshake/ACK protocol so
// the sender can be tested without a real ftreceiver.Receiver.
func fakeServer(t *testing.T, pconn net.PacketConn, dropFirstAckOf uint32, received *[][]byte) {
	t.Helper()
	go func() {
		buf := make([]byte, fragment.MaxDatagram)
		n, addr, err := pconn.ReadFrom(buf)
		if err != nil {
			return
		}
		if string(buf[:n]) == "ftp" {
			pconn.WriteTo([]byte("yes"), addr)
		}
		dropped := make(map[uint32]bool)
		for {
			n, addr, err := pconn.ReadFrom(buf)
			if err != nil {
				return
			}
			hdr, payload, err := fragment.ParseHeader(buf[:n])
			if err != nil {
				continue
			}
			*received = append(*received, append([]byte(nil), payload...))
			if hdr.FragNo == dropFirstAckOf && !dropped[hdr.FragNo] {
				dropped[hdr.FragNo] = true
				continue // simulate a lost ACK, forcing a retransmit
			}
			pconn.WriteTo([]byte("ACK"), addr)
		}
	}()
}

func TestSendSmallFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "small.bin")
	content := bytes.Repeat([]byte{0x7}, 250)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	server, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer server.Close()

	var received [][]byte
	fakeServer(t, server, 0, &received)

	client, err := net.Dial("udp", server.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	s := New(client, testConfig())
	if err := s.Send(path); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(received) != 1 || !bytes.Equal(received[0], content) {
		t.Fatalf("unexpected received fragments: %v", received)
	}
}

func TestSendRetransmitsOnLostAck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "retry.bin")
	content := bytes.Repeat([]byte{0x9}, 50)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	server, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer server.Close()

	var received [][]byte
	fakeServer(t, server, 1, &received) // drop the first ACK for fragment 1

	client, err := net.Dial("udp", server.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	s := New(client, testConfig())
	if err := s.Send(path); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(received) < 2 {
		t.Fatalf("expected at least one retransmit, got %d deliveries", len(received))
	}
}

func TestSendRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	client, err := net.Dial("udp", "127.0.0.1:1")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	s := New(client, testConfig())
	if err := s.Send(path); err != ErrEmptyFile {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
}

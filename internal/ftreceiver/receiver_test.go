package ftreceiver

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tanmaysharma2001/textconf/internal/config"
	"github.com/tanmaysharma2001/textconf/internal/fragment"
)

func testConfig(savedDir string) config.FileTransferConfig {
	return config.FileTransferConfig{
		FragmentSize:   1000,
		DropRate:       0,
		RetryAttempts:  5,
		InitialTimeout: 100 * time.Millisecond,
		MaxTimeout:     400 * time.Millisecond,
		SavedDir:       savedDir,
	}
}

func newLoopbackPair(t *testing.T) (serverConn net.PacketConn, clientConn net.Conn) {
	t.Helper()
	server, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	client, err := net.Dial("udp", server.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return server, client
}

func TestReceiverReassemblesSmallFile(t *testing.T) {
	dir := t.TempDir()
	server, client := newLoopbackPair(t)
	defer server.Close()
	defer client.Close()

	cfg := testConfig(dir)
	recv := New(server, cfg)

	var wg sync.WaitGroup
	wg.Add(1)
	var runErr error
	go func() {
		defer wg.Done()
		runErr = recv.Run()
	}()

	client.Write([]byte("ftp"))
	reply := make([]byte, 3)
	client.SetReadDeadline(time.Now().Add(time.Second))
	n, err := client.Read(reply)
	if err != nil || string(reply[:n]) != "yes" {
		t.Fatalf("handshake reply: %q err=%v", reply[:n], err)
	}

	payload := bytes.Repeat([]byte{0x42}, 100)
	hdr := fragment.Header{TotalFrag: 1, FragNo: 1, DataSize: 100, Filename: "out.bin"}
	datagram := append(fragment.BuildHeader(hdr), payload...)
	client.Write(datagram)

	ack := make([]byte, 3)
	client.SetReadDeadline(time.Now().Add(time.Second))
	n, err = client.Read(ack)
	if err != nil || string(ack[:n]) != "ACK" {
		t.Fatalf("expected ACK, got %q err=%v", ack[:n], err)
	}

	wg.Wait()
	if runErr != nil {
		t.Fatalf("receiver run: %v", runErr)
	}

	got, err := os.ReadFile(filepath.Join(dir, "out.bin"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("output file content mismatch")
	}
}

func TestReceiverIdempotentOnDuplicateFragment(t *testing.T) {
	dir := t.TempDir()
	server, client := newLoopbackPair(t)
	defer server.Close()
	defer client.Close()

	cfg := testConfig(dir)
	recv := New(server, cfg)

	var wg sync.WaitGroup
	wg.Add(1)
	var runErr error
	go func() {
		defer wg.Done()
		runErr = recv.Run()
	}()

	client.Write([]byte("ftp"))
	reply := make([]byte, 3)
	client.SetReadDeadline(time.Now().Add(time.Second))
	client.Read(reply)

	payload1 := []byte("hello world")
	hdr1 := fragment.Header{TotalFrag: 2, FragNo: 1, DataSize: uint32(len(payload1)), Filename: "dup.txt"}
	datagram1 := append(fragment.BuildHeader(hdr1), payload1...)

	// Send fragment 1 twice, simulating a retransmit after an ACK the
	// sender never saw; the receiver must re-ack without rewriting.
	client.Write(datagram1)
	ack := make([]byte, 3)
	client.SetReadDeadline(time.Now().Add(time.Second))
	client.Read(ack)

	client.Write(datagram1)
	client.SetReadDeadline(time.Now().Add(time.Second))
	n, err := client.Read(ack)
	if err != nil || string(ack[:n]) != "ACK" {
		t.Fatalf("expected re-ack on duplicate fragment, got %q err=%v", ack[:n], err)
	}

	payload2 := []byte("!")
	hdr2 := fragment.Header{TotalFrag: 2, FragNo: 2, DataSize: uint32(len(payload2)), Filename: "dup.txt"}
	datagram2 := append(fragment.BuildHeader(hdr2), payload2...)
	client.Write(datagram2)
	client.SetReadDeadline(time.Now().Add(time.Second))
	n, err = client.Read(ack)
	if err != nil || string(ack[:n]) != "ACK" {
		t.Fatalf("expected ack for final fragment, got %q err=%v", ack[:n], err)
	}

	wg.Wait()
	if runErr != nil {
		t.Fatalf("receiver run: %v", runErr)
	}

	got, err := os.ReadFile(filepath.Join(dir, "dup.txt"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	want := append(append([]byte(nil), payload1...), payload2...)
	if !bytes.Equal(got, want) {
		t.Fatalf("expected payload written exactly once, got %q want %q", got, want)
	}
}

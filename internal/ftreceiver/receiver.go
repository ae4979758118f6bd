// Package ftreceiver implements the file-transfer receiver (FR):
// handshake, ordered reassembly with an idempotent last-acked cursor,
// and a stochastic loss simulator. Grounded on the duplicate-chunk
// handling idiom in the pack's UDP client example
// (onFileChunkReceived/appendFileChunk), adapted from a chunk map down
// to a single cursor since the protocol here is strict stop-and-wait.
package ftreceiver

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/tanmaysharma2001/textconf/internal/config"
	"github.com/tanmaysharma2001/textconf/internal/fragment"
	"github.com/tanmaysharma2001/textconf/pkg/logger"
)

var (
	ErrHandshakeRejected = errors.New("ftreceiver: first datagram was not a handshake")
	ErrHeaderMismatch    = errors.New("ftreceiver: fragment addresses a different transfer than fragment 1")
)

// Receiver owns one in-progress transfer over pconn.
type Receiver struct {
	pconn net.PacketConn
	cfg   config.FileTransferConfig
	rng   *rand.Rand
}

func New(pconn net.PacketConn, cfg config.FileTransferConfig) *Receiver {
	return &Receiver{
		pconn: pconn,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run performs the handshake and then reassembles exactly one file,
// returning once the final fragment has been written and acked.
func (r *Receiver) Run() error {
	buf := make([]byte, fragment.MaxDatagram)

	n, clientAddr, err := r.pconn.ReadFrom(buf)
	if err != nil {
		return fmt.Errorf("ftreceiver: handshake recv: %w", err)
	}
	if string(buf[:n]) != "ftp" {
		return ErrHandshakeRejected
	}
	if _, err := r.pconn.WriteTo([]byte("yes"), clientAddr); err != nil {
		return fmt.Errorf("ftreceiver: handshake reply: %w", err)
	}

	var (
		out        *os.File
		lastAcked  uint32
		totalFrag  uint32
		filename   string
		haveHeader bool
	)
	defer func() {
		if out != nil {
			out.Close()
		}
	}()

	for {
		n, addr, err := r.pconn.ReadFrom(buf)
		if err != nil {
			return fmt.Errorf("ftreceiver: recv: %w", err)
		}
		if addr.String() != clientAddr.String() {
			continue
		}

		hdr, payload, err := fragment.ParseHeader(buf[:n])
		if err != nil {
			logger.Debug("ftreceiver: dropping malformed fragment: %v", err)
			continue
		}

		if r.rng.Float64() < r.cfg.DropRate {
			logger.Debug("ftreceiver: simulated loss of fragment %d", hdr.FragNo)
			continue
		}

		if haveHeader && (hdr.Filename != filename || hdr.TotalFrag != totalFrag) {
			return ErrHeaderMismatch
		}

		if !haveHeader {
			if hdr.FragNo != 1 {
				// First fragment observed isn't frag 1; without an
				// open file there is nothing to append to yet, so
				// drop it and wait for the real first fragment.
				continue
			}
			if err := fragment.SanitizeFilename(hdr.Filename); err != nil {
				return fmt.Errorf("ftreceiver: %w", err)
			}
			outPath := filepath.Join(r.cfg.SavedDir, hdr.Filename)
			out, err = os.Create(outPath)
			if err != nil {
				return fmt.Errorf("ftreceiver: creating output file: %w", err)
			}
			filename = hdr.Filename
			totalFrag = hdr.TotalFrag
			haveHeader = true
		}

		if hdr.FragNo > lastAcked {
			if _, err := out.Write(payload); err != nil {
				return fmt.Errorf("ftreceiver: writing fragment %d: %w", hdr.FragNo, err)
			}
			lastAcked = hdr.FragNo
		}

		if _, err := r.pconn.WriteTo([]byte("ACK"), addr); err != nil {
			return fmt.Errorf("ftreceiver: sending ack: %w", err)
		}

		if hdr.FragNo == hdr.TotalFrag {
			return nil
		}
	}
}

// Package ftsender implements the file-transfer sender (FS): fragment
// a local file and transmit it over a connected UDP socket using
// stop-and-wait acknowledgements with bounded exponential-backoff
// retransmission. Grounded on the retransmission-worker idiom found in
// the pack's UDP client example, simplified down to a single
// outstanding fragment (no windowing, no RTT estimation — both are
// explicit non-goals here).
package ftsender

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/tanmaysharma2001/textconf/internal/config"
	"github.com/tanmaysharma2001/textconf/internal/fragment"
	"github.com/tanmaysharma2001/textconf/pkg/logger"
)

var (
	ErrHandshakeRejected = errors.New("ftsender: server did not accept transfer")
	ErrEmptyFile         = errors.New("ftsender: refusing to send an empty file")
	ErrAckFailed         = errors.New("ftsender: exhausted retries waiting for ack")
)

// Sender drives one file transfer to completion over conn.
type Sender struct {
	conn net.Conn
	cfg  config.FileTransferConfig
}

func New(conn net.Conn, cfg config.FileTransferConfig) *Sender {
	return &Sender{conn: conn, cfg: cfg}
}

// Send transfers the file at path: handshake, then one stop-and-wait
// round trip per fragment.
func (s *Sender) Send(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("ftsender: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("ftsender: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return ErrEmptyFile
	}

	filename := filepath.Base(path)
	if err := fragment.SanitizeFilename(filename); err != nil {
		return fmt.Errorf("ftsender: %w", err)
	}

	if err := s.handshake(); err != nil {
		return err
	}

	fragSize := int64(s.cfg.FragmentSize)
	totalFrag := uint32((size + fragSize - 1) / fragSize)

	buf := make([]byte, fragSize)
	for fragNo := uint32(1); fragNo <= totalFrag; fragNo++ {
		n, err := io.ReadFull(f, buf)
		if err == io.ErrUnexpectedEOF {
			// Last, short fragment.
			err = nil
		}
		if err != nil {
			return fmt.Errorf("ftsender: reading fragment %d: %w", fragNo, err)
		}

		hdr := fragment.Header{
			TotalFrag: totalFrag,
			FragNo:    fragNo,
			DataSize:  uint32(n),
			Filename:  filename,
		}
		datagram := append(fragment.BuildHeader(hdr), buf[:n]...)

		if err := s.sendFragmentWithRetry(datagram, fragNo); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sender) handshake() error {
	if _, err := s.conn.Write([]byte("ftp")); err != nil {
		return fmt.Errorf("ftsender: handshake send: %w", err)
	}
	reply := make([]byte, 3)
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.MaxTimeout))
	n, err := s.conn.Read(reply)
	if err != nil {
		return fmt.Errorf("ftsender: handshake recv: %w", err)
	}
	if string(reply[:n]) != "yes" {
		return ErrHandshakeRejected
	}
	return nil
}

func (s *Sender) sendFragmentWithRetry(datagram []byte, fragNo uint32) error {
	timeout := s.cfg.InitialTimeout
	ackBuf := make([]byte, 3)

	for attempt := 1; attempt <= s.cfg.RetryAttempts; attempt++ {
		if _, err := s.conn.Write(datagram); err != nil {
			return fmt.Errorf("ftsender: sending fragment %d: %w", fragNo, err)
		}

		s.conn.SetReadDeadline(time.Now().Add(timeout))
		n, err := s.conn.Read(ackBuf)
		if err == nil && string(ackBuf[:n]) == "ACK" {
			return nil
		}

		logger.With(map[string]interface{}{"fragment": fragNo, "attempt": attempt}).
			Debug("ftsender: fragment not acked, retrying")

		timeout *= 2
		if timeout > s.cfg.MaxTimeout {
			timeout = s.cfg.MaxTimeout
		}
	}
	return fmt.Errorf("%w: fragment %d", ErrAckFailed, fragNo)
}

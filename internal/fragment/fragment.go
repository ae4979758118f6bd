// Package fragment implements the textual-header-plus-binary-payload
// framing used by the file-transfer protocol: one fragment per
// datagram, header "<total>:<no>:<size>:<filename>:" followed
// immediately by size raw bytes.
package fragment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MaxDatagram is the largest datagram either side will send or
	// accept.
	MaxDatagram = 2000
	// MaxHeaderLen is the longest a header is allowed to be before
	// it is treated as malformed and dropped.
	MaxHeaderLen = 511
	// MaxDataSize is the largest payload one fragment may carry.
	MaxDataSize = 1000
	// MaxFilenameLen bounds the filename embedded in the header.
	MaxFilenameLen = 255
)

// Header is the parsed form of one fragment's textual header.
type Header struct {
	TotalFrag uint32
	FragNo    uint32
	DataSize  uint32
	Filename  string
}

var (
	// ErrMalformedHeader covers a missing fourth colon or a header
	// exceeding MaxHeaderLen; per spec both are dropped rather than
	// NAKed.
	ErrMalformedHeader = errors.New("fragment: malformed header")
	ErrBadFilename     = errors.New("fragment: invalid filename")
)

// ParseHeader scans datagram for the fourth ':' delimiting the header
// from the payload, then parses the three integer fields and the
// filename. It returns the parsed header and the remaining payload
// bytes.
func ParseHeader(datagram []byte) (Header, []byte, error) {
	if len(datagram) > MaxDatagram {
		return Header{}, nil, ErrMalformedHeader
	}

	colons := 0
	idx := -1
	limit := len(datagram)
	if limit > MaxHeaderLen {
		limit = MaxHeaderLen
	}
	for i := 0; i < limit; i++ {
		if datagram[i] == ':' {
			colons++
			if colons == 4 {
				idx = i
				break
			}
		}
	}
	if idx == -1 {
		return Header{}, nil, ErrMalformedHeader
	}

	headerStr := string(datagram[:idx])
	parts := strings.SplitN(headerStr, ":", 4)
	if len(parts) != 4 {
		return Header{}, nil, ErrMalformedHeader
	}

	total, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Header{}, nil, ErrMalformedHeader
	}
	no, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Header{}, nil, ErrMalformedHeader
	}
	size, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return Header{}, nil, ErrMalformedHeader
	}
	filename := parts[3]
	if err := SanitizeFilename(filename); err != nil {
		return Header{}, nil, err
	}

	payload := datagram[idx+1:]
	if uint64(len(payload)) < size {
		return Header{}, nil, ErrMalformedHeader
	}
	payload = payload[:size]

	return Header{
		TotalFrag: uint32(total),
		FragNo:    uint32(no),
		DataSize:  uint32(size),
		Filename:  filename,
	}, payload, nil
}

// BuildHeader renders a Header back into its textual wire form,
// "<total>:<no>:<size>:<filename>:".
func BuildHeader(h Header) []byte {
	return []byte(fmt.Sprintf("%d:%d:%d:%s:", h.TotalFrag, h.FragNo, h.DataSize, h.Filename))
}

// SanitizeFilename rejects path separators, colons, NUL bytes, and
// overlong names. The reference sender only checked file existence;
// the spec mandates this stricter validation since the filename is
// embedded directly in the wire header.
func SanitizeFilename(name string) error {
	if name == "" || len(name) > MaxFilenameLen {
		return ErrBadFilename
	}
	if strings.ContainsAny(name, ":/\x00") {
		return ErrBadFilename
	}
	return nil
}

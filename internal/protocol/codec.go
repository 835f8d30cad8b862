package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrFormat is returned when an IP literal is not a valid dotted quad.
var ErrFormat = errors.New("invalid ipv4 address")

// ReadClampedString consumes bytes until a zero byte, maxLength consumed bytes
// or the end of the reader, whichever comes first. The terminator is consumed
// but not returned. Exhaustion is not an error.
func ReadClampedString(r io.ByteReader, maxLength int) string {
	var buf bytes.Buffer

	for buf.Len() < maxLength {
		b, err := r.ReadByte()
		if err != nil || b == 0 {
			break
		}
		buf.WriteByte(b)
	}

	return buf.String()
}

// WriteLengthPrefixedString appends a 4-byte signed big-endian byte length
// followed by the raw bytes of s. No length ceiling is enforced.
func WriteLengthPrefixedString(buf *bytes.Buffer, s string) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(int32(len(s))))
	buf.Write(length[:])
	buf.WriteString(s)
}

// ReadLengthPrefixedString reads a 4-byte signed big-endian length and that many bytes.
//
// A declared length <= 0 or > MaxLengthPrefixed yields an empty string and the
// payload is left unread. An error is returned only when the reader runs out
// of data.
func ReadLengthPrefixedString(r io.Reader) (string, error) {
	var length int32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", fmt.Errorf("failed to read string length: %w", err)
	}

	if length <= 0 || length > MaxLengthPrefixed {
		return "", nil
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", fmt.Errorf("failed to read string payload (%d bytes): %w", length, err)
	}

	return string(data), nil
}

// IPToBytes converts a dotted-quad IPv4 literal into its four octets.
func IPToBytes(ip string) ([4]byte, error) {
	var out [4]byte

	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return out, fmt.Errorf("%w: %q has %d segments", ErrFormat, ip, len(parts))
	}

	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return out, fmt.Errorf("%w: %q segment %q", ErrFormat, ip, part)
		}
		out[i] = byte(n)
	}

	return out, nil
}

// BytesToIP joins octets into a dotted-quad string, treating each byte as unsigned.
func BytesToIP(octets []byte) string {
	parts := make([]string, len(octets))
	for i, b := range octets {
		parts[i] = strconv.Itoa(int(b))
	}

	return strings.Join(parts, ".")
}

package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// BuildHandshake creates the login handshake packet.
// Format: [magic:4][version:2 BE][username_len:1][username:N]
//
// The username length is a truncating single-byte cast; names longer than
// 255 bytes corrupt the field and are not rejected. The password is not part
// of this packet.
func BuildHandshake(username string) []byte {
	var buf bytes.Buffer
	buf.Grow(len(Magic) + 3 + len(username))

	buf.WriteString(Magic)
	_ = binary.Write(&buf, binary.BigEndian, HandshakeVersion)
	buf.WriteByte(byte(len(username)))
	buf.WriteString(username)

	return buf.Bytes()
}

// BuildQuery creates an 11-byte query request.
// Format: [magic:4][ip octets:4][port:2 LE][opcode:1]
//
// ip must be a dotted-quad literal; host names are not resolved.
func BuildQuery(ip string, port int, opcode byte) ([]byte, error) {
	octets, err := IPToBytes(ip)
	if err != nil {
		return nil, fmt.Errorf("failed to build query packet: %w", err)
	}

	packet := make([]byte, QueryHeaderSize)
	copy(packet[0:4], Magic)
	copy(packet[4:8], octets[:])
	binary.LittleEndian.PutUint16(packet[8:10], uint16(port))
	packet[10] = opcode

	return packet, nil
}

// Package protocol implements the binary codec and packet layouts of the SA-MP
// client protocol: the TCP login handshake and the UDP server query.
//
// Byte order is not uniform across packets. Handshake fields and all query
// reply integers are big-endian, while the port inside a query request is
// little-endian. Each field is encoded exactly as the server expects it.
package protocol

// Magic is the 4-byte ASCII prefix of every handshake and query packet.
const Magic = "SAMP"

// HandshakeVersion is the protocol version tag sent in the login handshake.
const HandshakeVersion uint16 = 0x4057

// Query opcodes select the query variant requested by a datagram.
// Only OpcodeInfo is used by the query client.
const (
	OpcodeInfo     byte = 'i' // Basic server info
	OpcodeRules    byte = 'r' // Server rules
	OpcodeClients  byte = 'c' // Client list
	OpcodeDetailed byte = 'd' // Detailed player list
)

// Handshake response codes, carried in the first byte of the server reply.
const (
	ResponseSuccess       byte = 0x00
	ResponseWrongPassword byte = 0x01
	ResponseServerFull    byte = 0x02
	ResponseBanned        byte = 0x03
)

// QueryHeaderSize is the size of a query request, which the server echoes
// at the start of every reply.
const QueryHeaderSize = 11

// MaxClampedString is the default limit for ReadClampedString.
const MaxClampedString = 256

// MaxLengthPrefixed is the largest declared length ReadLengthPrefixedString accepts.
const MaxLengthPrefixed = 1024

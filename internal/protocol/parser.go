package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortPacket is returned when a reply is too small to hold its header.
var ErrShortPacket = errors.New("packet too short")

// InfoReply holds the decoded body of an info query reply.
type InfoReply struct {
	Hostname      string
	GameMode      string
	Language      string
	PlayersOnline uint16
	MaxPlayers    uint16
	Passworded    bool
}

// ParseInfo decodes an info query reply.
// The first QueryHeaderSize bytes echo the request and are skipped without
// validation. Body format:
//
//	[passworded:1][players:2 BE][max_players:2 BE]
//	[hostname:len-prefixed][gamemode:len-prefixed][language:len-prefixed]
//
// Any underrun fails the whole reply; partial results are never returned.
func ParseInfo(data []byte) (*InfoReply, error) {
	if len(data) < QueryHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, header is %d", ErrShortPacket, len(data), QueryHeaderSize)
	}

	r := bytes.NewReader(data[QueryHeaderSize:])

	var (
		flag  byte
		reply InfoReply
		err   error
	)

	if flag, err = r.ReadByte(); err != nil {
		return nil, fmt.Errorf("failed to parse password flag: %w", err)
	}
	reply.Passworded = flag == 1

	if err := binary.Read(r, binary.BigEndian, &reply.PlayersOnline); err != nil {
		return nil, fmt.Errorf("failed to parse players online: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &reply.MaxPlayers); err != nil {
		return nil, fmt.Errorf("failed to parse max players: %w", err)
	}

	if reply.Hostname, err = ReadLengthPrefixedString(r); err != nil {
		return nil, fmt.Errorf("failed to parse hostname: %w", err)
	}
	if reply.GameMode, err = ReadLengthPrefixedString(r); err != nil {
		return nil, fmt.Errorf("failed to parse game mode: %w", err)
	}
	if reply.Language, err = ReadLengthPrefixedString(r); err != nil {
		return nil, fmt.Errorf("failed to parse language: %w", err)
	}

	return &reply, nil
}

// ParseResponseCode returns the handshake response code from a server reply.
func ParseResponseCode(data []byte) (byte, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("%w: empty handshake reply", ErrShortPacket)
	}

	return data[0], nil
}

// BuildInfoReply encodes an info reply for the given request header.
// It is the server side of ParseInfo and is used by local responders.
func BuildInfoReply(header []byte, reply InfoReply) []byte {
	var buf bytes.Buffer

	buf.Write(header)
	if reply.Passworded {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	_ = binary.Write(&buf, binary.BigEndian, reply.PlayersOnline)
	_ = binary.Write(&buf, binary.BigEndian, reply.MaxPlayers)
	WriteLengthPrefixedString(&buf, reply.Hostname)
	WriteLengthPrefixedString(&buf, reply.GameMode)
	WriteLengthPrefixedString(&buf, reply.Language)

	return buf.Bytes()
}

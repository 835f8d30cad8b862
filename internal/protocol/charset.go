package protocol

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Decoder converts a wire string into UTF-8.
type Decoder func(string) (string, error)

// NewDecoder returns a Decoder for the named charset.
// "utf-8" (or empty) returns the bytes unchanged; legacy servers commonly
// send hostnames in windows-1251 or windows-1252.
func NewDecoder(charset string) (Decoder, error) {
	var enc encoding.Encoding

	switch strings.ToLower(charset) {
	case "", "utf-8", "utf8":
		return func(s string) (string, error) { return s, nil }, nil
	case "windows-1251", "cp1251":
		enc = charmap.Windows1251
	case "windows-1252", "cp1252":
		enc = charmap.Windows1252
	case "iso-8859-1", "latin1":
		enc = charmap.ISO8859_1
	default:
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}

	return func(s string) (string, error) {
		return enc.NewDecoder().String(s)
	}, nil
}

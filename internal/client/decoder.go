package client

import (
	"strings"
	"unicode/utf8"
)

// utf8Decoder turns a byte stream read in arbitrary chunks into text. A rune
// split across two chunks is held back until its remaining bytes arrive.
type utf8Decoder struct {
	pending []byte
}

func (d *utf8Decoder) Decode(chunk []byte) string {
	buf := append(d.pending, chunk...)
	cut := incompleteSuffix(buf)

	d.pending = append([]byte(nil), buf[cut:]...)
	return strings.ToValidUTF8(string(buf[:cut]), string(utf8.RuneError))
}

// Flush returns whatever is still held back. Bytes that never formed a
// complete rune decode to the replacement character.
func (d *utf8Decoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}

	s := strings.ToValidUTF8(string(d.pending), string(utf8.RuneError))
	d.pending = nil
	return s
}

// incompleteSuffix returns the offset of a trailing rune that is started but
// not finished, or len(buf) when buf ends on a rune boundary.
func incompleteSuffix(buf []byte) int {
	for i := len(buf) - 1; i >= 0 && i >= len(buf)-utf8.UTFMax; i-- {
		if buf[i] < utf8.RuneSelf {
			break
		}

		if utf8.RuneStart(buf[i]) {
			if !utf8.FullRune(buf[i:]) {
				return i
			}
			break
		}
	}

	return len(buf)
}

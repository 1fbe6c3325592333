package classfile

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Class files store strings in modified UTF-8: NUL is two bytes and
// supplementary characters are encoded as a surrogate pair of three-byte
// sequences.

func encodeModifiedUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r < 0x80:
			out = append(out, byte(r))
		case r < 0x10000:
			out = appendUnit(out, uint16(r))
		default:
			hi, lo := utf16.EncodeRune(r)
			out = appendUnit(out, uint16(hi))
			out = appendUnit(out, uint16(lo))
		}
	}
	return out
}

func appendUnit(out []byte, u uint16) []byte {
	if u < 0x800 {
		return append(out, 0xC0|byte(u>>6), 0x80|byte(u&0x3F))
	}
	return append(out, 0xE0|byte(u>>12), 0x80|byte((u>>6)&0x3F), 0x80|byte(u&0x3F))
}

// decodeModifiedUTF8 is lenient: bytes that do not form a valid sequence
// become U+FFFD rather than failing the whole class.
func decodeModifiedUTF8(b []byte) string {
	plain := true
	for _, c := range b {
		if c == 0 || c >= 0x80 {
			plain = false
			break
		}
	}
	if plain {
		return string(b)
	}

	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			units = append(units, utf8.RuneError)
			i++
		}
	}

	var sb strings.Builder
	for _, r := range utf16.Decode(units) {
		sb.WriteRune(r)
	}
	return sb.String()
}

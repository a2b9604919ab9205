package pdb

import "unicode/utf16"

// EmptyString is the single shared byte sequence every absent string slot
// must point to: the short-ASCII encoding of the zero-length
// string. Every row heap writes this once; slots for absent fields carry an
// offset into that single occurrence, never offset 0 of the row.
var EmptyString = []byte{0x03}

// EncodeString renders s in the DeviceSQL variable-length convention,
// picking short-ASCII, long-ASCII, or long-UTF16LE by content. The empty
// string always takes the EmptyString shortcut.
func EncodeString(s string) []byte {
	if s == "" {
		return append([]byte(nil), EmptyString...)
	}
	if isASCII(s) {
		if len(s) <= 126 {
			return encodeShortASCII(s)
		}
		return encodeLongASCII(s)
	}
	return encodeLongUTF16LE(s)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return false
		}
	}
	return true
}

func encodeShortASCII(s string) []byte {
	out := make([]byte, 1+len(s))
	out[0] = byte(((len(s) + 1) << 1) | 1)
	copy(out[1:], s)
	return out
}

func encodeLongASCII(s string) []byte {
	n := len(s)
	length := uint16(n + 4)
	out := make([]byte, 4+n)
	out[0] = 0x40
	out[1] = byte(length)
	out[2] = byte(length >> 8)
	out[3] = 0x00
	copy(out[4:], s)
	return out
}

func encodeLongUTF16LE(s string) []byte {
	units := utf16.Encode([]rune(s))
	n := len(units) * 2
	length := uint16(n + 4)
	out := make([]byte, 4+n)
	out[0] = 0x90
	out[1] = byte(length)
	out[2] = byte(length >> 8)
	out[3] = 0x00
	for i, u := range units {
		out[4+2*i] = byte(u)
		out[4+2*i+1] = byte(u >> 8)
	}
	return out
}

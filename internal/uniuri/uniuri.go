package uniuri

import "crypto/rand"

const (
	// StdLen is the default token length, ~95 bits of entropy.
	StdLen = 16

	// SessionLen is the length used for session tokens.
	SessionLen = 48
)

// StdChars is the character set tokens are drawn from.
var StdChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")

const (
	maxByteValue = 255
	byteRange    = 256
)

// New returns a new random token of the standard length.
func New() string {
	return NewLen(StdLen)
}

// NewLen returns a new random token of the provided length.
func NewLen(length int) string {
	return NewLenChars(length, StdChars)
}

// NewLenChars returns a new random string of the provided length drawn
// from the provided character set (at most 256 characters). Bytes above
// the largest multiple of the set size are rejected to avoid modulo bias.
func NewLenChars(length int, chars []byte) string {
	if length == 0 {
		return ""
	}

	clen := len(chars)
	if clen < 2 || clen > byteRange {
		panic("uniuri: wrong charset length for NewLenChars")
	}

	maxRb := maxByteValue - (byteRange % clen)
	buf := make([]byte, length)
	out := make([]byte, length)

	var i int

	for {
		if _, err := rand.Read(buf); err != nil {
			panic("uniuri: error reading random bytes: " + err.Error())
		}

		for _, rb := range buf {
			c := int(rb)
			if c > maxRb {
				continue
			}

			out[i] = chars[c%clen]
			i++

			if i == length {
				return string(out)
			}
		}
	}
}

package storage

import (
	"encoding/binary"
	"fmt"
)

// Composite keys follow the length-prefix convention: every part except the
// last is preceded by its length as a 2-byte big-endian integer, so that
// ("ab","c") and ("a","bc") never collide and a prefix of parts is a byte
// prefix of the full key.

// MaxKeyPart is the longest part a length prefix can describe
const MaxKeyPart = 0xFFFF

// Key joins parts into a composite key
func Key(parts ...[]byte) ([]byte, error) {
	if len(parts) == 0 {
		return nil, nil
	}
	size := 0
	for _, p := range parts {
		size += len(p) + 2
	}
	out := make([]byte, 0, size)
	for i, p := range parts {
		if i == len(parts)-1 {
			return append(out, p...), nil
		}
		var err error
		if out, err = appendLengthPrefixed(out, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Prefix joins parts with every part length-prefixed
func Prefix(parts ...[]byte) ([]byte, error) {
	var (
		out []byte
		err error
	)
	for _, p := range parts {
		if out, err = appendLengthPrefixed(out, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func appendLengthPrefixed(out, part []byte) ([]byte, error) {
	if len(part) > MaxKeyPart {
		return nil, fmt.Errorf("%w: key part of %d bytes exceeds %d", ErrInvalidKey, len(part), MaxKeyPart)
	}
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(part)))
	out = append(out, l[:]...)
	return append(out, part...), nil
}

// SplitKey splits the remainder of a composite key into n parts. The first
// n-1 parts are length-prefixed and the last takes the rest.
func SplitKey(rest []byte, n int) ([][]byte, error) {
	parts := make([][]byte, 0, n)
	for i := 0; i < n-1; i++ {
		if len(rest) < 2 {
			return nil, ErrInvalidKey
		}
		l := int(binary.BigEndian.Uint16(rest[:2]))
		if len(rest) < 2+l {
			return nil, ErrInvalidKey
		}
		parts = append(parts, rest[2:2+l])
		rest = rest[2+l:]
	}
	return append(parts, rest), nil
}

// PrefixEnd returns the smallest key greater than every key with this prefix,
// or nil when no such key exists.
func PrefixEnd(prefix []byte) []byte {
	end := cloneBytes(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// U64 encodes n big-endian so numeric order matches byte order
func U64(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

// U32 encodes n big-endian
func U32(n uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, n)
	return b
}

// ParseU64 decodes a key part written by U64
func ParseU64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: expected 8 bytes, got %d", ErrInvalidKey, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// Str encodes a string key part
func Str(s string) []byte {
	return []byte(s)
}

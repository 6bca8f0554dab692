package domain

import (
	"fmt"
	"io"
)

// SessionIDAlphabet omits I, L, O and U so ids survive being read aloud or retyped.
const SessionIDAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const SessionIDLength = 6

// RandomSessionID reads SessionIDLength bytes from r and maps each onto the
// 32-symbol alphabet. 256 is a multiple of 32 so the mapping is unbiased.
func RandomSessionID(r io.Reader) (SessionID, error) {
	buf := make([]byte, SessionIDLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read random session id: %w", err)
	}

	out := make([]byte, SessionIDLength)
	for i, b := range buf {
		out[i] = SessionIDAlphabet[int(b)%len(SessionIDAlphabet)]
	}

	return SessionID(out), nil
}

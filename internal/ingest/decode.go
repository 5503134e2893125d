package ingest

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"msgboard/relay/internal/types"
)

// ErrMalformedPair is returned when a payload segment is not exactly one
// key=value pair.
var ErrMalformedPair = errors.New("malformed key=value pair")

// Decode parses a URL-encoded form body into a Record. Every
// &-separated segment must contain exactly one '='. A repeated key keeps
// its last value.
func Decode(payload []byte) (types.Record, error) {
	rec := types.Record{}
	for _, pair := range strings.Split(string(payload), "&") {
		parts := strings.Split(pair, "=")
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedPair, pair)
		}
		rec[unescape(parts[0])] = unescape(parts[1])
	}
	return rec, nil
}

// unescape decodes s as a form component. Invalid percent escapes are
// kept literally, so "50%off" stays "50%off".
func unescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c <= '9':
		return c - '0'
	case c <= 'F':
		return c - 'A' + 10
	}
	return c - 'a' + 10
}

// Package transfer implements the line-oriented pair encoding used by the
// /range and /all export endpoints. Each pair is two lines: the key, then the
// value. Keys and values must not contain newlines; nodes enforce this at
// write time so the codec never has to escape.
package transfer

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Pair is one exported key/value entry.
type Pair struct {
	Key   string
	Value string
}

var (
	ErrTruncated  = errors.New("transfer: key line without a matching value line")
	ErrHasNewline = errors.New("transfer: keys and values must not contain newlines")
)

// maxLineSize bounds a single key or value line during decode.
const maxLineSize = 1 << 20

// HasNewline reports whether s would corrupt the line encoding.
func HasNewline(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}

// Encode writes pairs in wire form. Callers are expected to have rejected
// newline-carrying keys and values before storing them.
func Encode(w io.Writer, pairs []Pair) error {
	bw := bufio.NewWriter(w)
	for _, p := range pairs {
		if HasNewline(p.Key) || HasNewline(p.Value) {
			return ErrHasNewline
		}
		bw.WriteString(p.Key)
		bw.WriteByte('\n')
		bw.WriteString(p.Value)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Decode parses a wire body back into pairs. An empty body decodes to no
// pairs; a trailing key without its value line is an error.
func Decode(r io.Reader) ([]Pair, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)

	var (
		pairs   []Pair
		key     string
		haveKey bool
	)
	for sc.Scan() {
		if !haveKey {
			key = sc.Text()
			haveKey = true
			continue
		}
		pairs = append(pairs, Pair{Key: key, Value: sc.Text()})
		haveKey = false
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if haveKey {
		return nil, ErrTruncated
	}
	return pairs, nil
}

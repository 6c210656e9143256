package transfer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	as := assert.New(t)

	pairs := []Pair{
		{Key: "user_id_1", Value: "Alice"},
		{Key: "empty", Value: ""},
		{Key: "", Value: "keyless"},
		{Key: "spaces ok", Value: "value with spaces"},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, pairs))

	decoded, err := Decode(&buf)
	as.NoError(err)
	as.Equal(pairs, decoded)
}

func TestDecodeEmpty(t *testing.T) {
	as := assert.New(t)

	pairs, err := Decode(strings.NewReader(""))
	as.NoError(err)
	as.Empty(pairs)
}

func TestDecodeTruncated(t *testing.T) {
	as := assert.New(t)

	_, err := Decode(strings.NewReader("orphan-key\n"))
	as.ErrorIs(err, ErrTruncated)
}

func TestEncodeRejectsNewline(t *testing.T) {
	as := assert.New(t)

	var buf bytes.Buffer
	err := Encode(&buf, []Pair{{Key: "k", Value: "multi\nline"}})
	as.ErrorIs(err, ErrHasNewline)

	err = Encode(&buf, []Pair{{Key: "bad\rkey", Value: "v"}})
	as.ErrorIs(err, ErrHasNewline)
}

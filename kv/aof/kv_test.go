package aof

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestKV(t *testing.T, dir string) *DiskKV {
	t.Helper()
	d, err := New(Config{
		Logger:        zaptest.NewLogger(t),
		DataDir:       dir,
		FlushInterval: time.Millisecond * 100,
	})
	require.NoError(t, err)
	go d.Start()
	return d
}

func TestConfigValidation(t *testing.T) {
	as := assert.New(t)

	_, err := New(Config{DataDir: t.TempDir(), FlushInterval: time.Second})
	as.Error(err)

	_, err = New(Config{Logger: zaptest.NewLogger(t), FlushInterval: time.Second})
	as.Error(err)

	_, err = New(Config{Logger: zaptest.NewLogger(t), DataDir: t.TempDir()})
	as.Error(err)
}

func TestReplayRestoresState(t *testing.T) {
	as := assert.New(t)

	dir := t.TempDir()
	d := newTestKV(t, dir)

	num := 100
	for i := 0; i < num; i++ {
		as.NoError(d.Put(fmt.Sprintf("key_%d", i), fmt.Sprintf("value_%d", i)))
	}
	// deletions must not resurrect on restart
	for i := 0; i < num; i += 2 {
		as.NoError(d.Delete(fmt.Sprintf("key_%d", i)))
	}
	as.NoError(d.Put("key_1", "rewritten"))
	d.Stop()

	restarted := newTestKV(t, dir)
	defer restarted.Stop()

	as.Equal(num/2, restarted.Len())
	for i := 0; i < num; i++ {
		v, ok := restarted.Get(fmt.Sprintf("key_%d", i))
		if i%2 == 0 {
			as.False(ok, "deleted key_%d resurrected", i)
			continue
		}
		as.True(ok)
		if i == 1 {
			as.Equal("rewritten", v)
		} else {
			as.Equal(fmt.Sprintf("value_%d", i), v)
		}
	}
}

func TestWriteAfterStop(t *testing.T) {
	as := assert.New(t)

	d := newTestKV(t, t.TempDir())
	as.NoError(d.Put("k", "v"))
	d.Stop()

	as.Error(d.Put("k", "v2"))
	as.Error(d.Delete("k"))

	// reads still serve the memory state
	v, ok := d.Get("k")
	as.True(ok)
	as.Equal("v", v)

	// double stop is a no-op
	d.Stop()
}

func TestMutationCodec(t *testing.T) {
	as := assert.New(t)

	for _, mut := range []mutation{
		{op: opSet, key: "k", value: "v"},
		{op: opSet, key: "", value: ""},
		{op: opSet, key: "key with spaces", value: "value with spaces"},
		{op: opDelete, key: "gone"},
	} {
		decoded, err := decodeMutation(encodeMutation(mut))
		as.NoError(err)
		as.Equal(mut, decoded)
	}

	_, err := decodeMutation(nil)
	as.Error(err)
	_, err = decodeMutation([]byte{99, 1, 'k'})
	as.Error(err)
}

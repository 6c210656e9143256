package aof

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"
)

type mutationOp byte

const (
	opSet mutationOp = iota + 1
	opDelete
)

func (o mutationOp) String() string {
	switch o {
	case opSet:
		return "SET"
	case opDelete:
		return "DEL"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", byte(o))
	}
}

// mutation is one logged store operation. Records carry the key for both
// ops and the value only for SET, length-prefixed so keys may contain any
// byte the HTTP surface lets through.
type mutation struct {
	op    mutationOp
	key   string
	value string
}

func encodeMutation(mut mutation) []byte {
	buf := make([]byte, 0, 1+2*binary.MaxVarintLen64+len(mut.key)+len(mut.value))
	buf = append(buf, byte(mut.op))
	buf = binary.AppendUvarint(buf, uint64(len(mut.key)))
	buf = append(buf, mut.key...)
	if mut.op == opSet {
		buf = binary.AppendUvarint(buf, uint64(len(mut.value)))
		buf = append(buf, mut.value...)
	}
	return buf
}

func decodeMutation(buf []byte) (mutation, error) {
	if len(buf) < 1 {
		return mutation{}, fmt.Errorf("empty record")
	}
	mut := mutation{op: mutationOp(buf[0])}
	rest := buf[1:]

	key, rest, err := readBlob(rest)
	if err != nil {
		return mutation{}, fmt.Errorf("reading key: %w", err)
	}
	mut.key = key

	switch mut.op {
	case opSet:
		value, _, err := readBlob(rest)
		if err != nil {
			return mutation{}, fmt.Errorf("reading value: %w", err)
		}
		mut.value = value
	case opDelete:
	default:
		return mutation{}, fmt.Errorf("unknown mutation op: %d", buf[0])
	}
	return mut, nil
}

func readBlob(buf []byte) (string, []byte, error) {
	length, n := binary.Uvarint(buf)
	if n <= 0 {
		return "", nil, fmt.Errorf("invalid length prefix")
	}
	buf = buf[n:]
	if uint64(len(buf)) < length {
		return "", nil, fmt.Errorf("record shorter than declared length %d", length)
	}
	return string(buf[:length]), buf[length:], nil
}

func (d *DiskKV) replayLogs() error {
	index, err := d.log.LastIndex()
	if err != nil {
		return fmt.Errorf("error reading last log index: %w", err)
	}
	d.logger.Info("Replaying mutation logs", zap.Uint64("index", index))
	for i := uint64(1); i <= index; i++ {
		buf, err := d.log.Read(i)
		if err != nil {
			return fmt.Errorf("error reading log at index %d: %w", i, err)
		}
		mut, err := decodeMutation(buf)
		if err != nil {
			return fmt.Errorf("error decoding record at index %d: %w", i, err)
		}
		if err := d.applyMutation(mut); err != nil {
			return fmt.Errorf("error applying mutation to memory state at index %d: %w", i, err)
		}
	}
	d.counter = index + 1
	return nil
}

func (d *DiskKV) appendLog(mut mutation) error {
	if err := d.log.Write(d.counter, encodeMutation(mut)); err != nil {
		d.logger.Error("Error appending to log",
			zap.Uint64("counter", d.counter),
			zap.String("mutation", mut.op.String()),
			zap.Error(err))
		return err
	}
	d.counter += 1
	return nil
}

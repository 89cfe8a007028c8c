package kvengine

import (
	"encoding/binary"
	"io"

	"github.com/cuemby/relkv/pkg/rerr"
)

const dumpSentinel uint32 = 0xFFFFFFFF

// WriteDump streams every (key, value) pair read from next (which should
// return io.EOF once exhausted) to w in the storage dump wire format:
// a sequence of (key_size u32le, value_size u32le, key, value) records
// terminated by a sentinel key_size.
func WriteDump(w io.Writer, next func() (key, value []byte, err error)) error {
	var sizeBuf [8]byte
	for {
		key, value, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rerr.Wrap(rerr.CodeInternal, err, "reading storage entry for dump")
		}
		binary.LittleEndian.PutUint32(sizeBuf[0:4], uint32(len(key)))
		binary.LittleEndian.PutUint32(sizeBuf[4:8], uint32(len(value)))
		if _, err := w.Write(sizeBuf[:]); err != nil {
			return rerr.Wrap(rerr.CodeInternal, err, "writing dump record header")
		}
		if _, err := w.Write(key); err != nil {
			return rerr.Wrap(rerr.CodeInternal, err, "writing dump key")
		}
		if _, err := w.Write(value); err != nil {
			return rerr.Wrap(rerr.CodeInternal, err, "writing dump value")
		}
	}
	binary.LittleEndian.PutUint32(sizeBuf[0:4], dumpSentinel)
	_, err := w.Write(sizeBuf[0:4])
	return err
}

// ReadDump streams (key, value) pairs out of r until the sentinel is
// read, invoking onEntry for each.
func ReadDump(r io.Reader, onEntry func(key, value []byte) error) error {
	var sizeBuf [8]byte
	for {
		if _, err := io.ReadFull(r, sizeBuf[0:4]); err != nil {
			return rerr.Wrap(rerr.CodeInternal, err, "reading dump key size")
		}
		keySize := binary.LittleEndian.Uint32(sizeBuf[0:4])
		if keySize == dumpSentinel {
			return nil
		}
		if _, err := io.ReadFull(r, sizeBuf[4:8]); err != nil {
			return rerr.Wrap(rerr.CodeInternal, err, "reading dump value size")
		}
		valueSize := binary.LittleEndian.Uint32(sizeBuf[4:8])

		key := make([]byte, keySize)
		if _, err := io.ReadFull(r, key); err != nil {
			return rerr.Wrap(rerr.CodeInternal, err, "reading dump key")
		}
		value := make([]byte, valueSize)
		if _, err := io.ReadFull(r, value); err != nil {
			return rerr.Wrap(rerr.CodeInternal, err, "reading dump value")
		}
		if err := onEntry(key, value); err != nil {
			return err
		}
	}
}

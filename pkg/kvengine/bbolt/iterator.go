package bbolt

import (
	"bytes"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/relkv/pkg/kvengine"
)

// cursorIterator adapts a bbolt cursor to kvengine.Iterator, applying the
// endpoint-kind semantics of spec §6's content_scan signature.
type cursorIterator struct {
	c         *bolt.Cursor
	endKey    []byte
	endKind   kvengine.EndpointKind
	limit     int
	reverse   bool
	started   bool
	emitted   int
	key, val  []byte
	exhausted bool
}

func newCursorIterator(c *bolt.Cursor, beginKey []byte, beginKind kvengine.EndpointKind, endKey []byte, endKind kvengine.EndpointKind, limit int, reverse bool) *cursorIterator {
	it := &cursorIterator{c: c, endKey: endKey, endKind: endKind, limit: limit, reverse: reverse}
	it.seekStart(beginKey, beginKind)
	return it
}

func (it *cursorIterator) seekStart(beginKey []byte, beginKind kvengine.EndpointKind) {
	if it.reverse {
		if beginKind == kvengine.EndpointUnspecified || len(beginKey) == 0 {
			it.key, it.val = it.c.Last()
			return
		}
		// position at the last key <= beginKey (for Inclusive/PrefixInclusive)
		// or < beginKey (for Exclusive): Seek lands at the first key >= beginKey,
		// so step back once unless that key is itself the bound we want.
		k, v := it.c.Seek(beginKey)
		if k == nil {
			it.key, it.val = it.c.Last()
			return
		}
		cmp := bytes.Compare(k, beginKey)
		switch beginKind {
		case kvengine.EndpointExclusive:
			if cmp >= 0 {
				it.key, it.val = it.c.Prev()
			} else {
				it.key, it.val = k, v
			}
		default: // Inclusive, PrefixInclusive
			if cmp == 0 {
				it.key, it.val = k, v
			} else {
				it.key, it.val = it.c.Prev()
			}
		}
		return
	}

	if beginKind == kvengine.EndpointUnspecified || len(beginKey) == 0 {
		it.key, it.val = it.c.First()
		return
	}
	k, v := it.c.Seek(beginKey)
	if beginKind == kvengine.EndpointExclusive && k != nil && bytes.Equal(k, beginKey) {
		k, v = it.c.Next()
	}
	it.key, it.val = k, v
}

func (it *cursorIterator) pastEnd() bool {
	if it.key == nil {
		return true
	}
	if len(it.endKey) == 0 || it.endKind == kvengine.EndpointUnspecified {
		return false
	}
	if it.reverse {
		switch it.endKind {
		case kvengine.EndpointInclusive, kvengine.EndpointPrefixInclusive:
			return bytes.Compare(it.key, it.endKey) < 0
		case kvengine.EndpointExclusive:
			return bytes.Compare(it.key, it.endKey) <= 0
		}
		return false
	}
	switch it.endKind {
	case kvengine.EndpointInclusive:
		return bytes.Compare(it.key, it.endKey) > 0
	case kvengine.EndpointExclusive:
		return bytes.Compare(it.key, it.endKey) >= 0
	case kvengine.EndpointPrefixInclusive:
		return !bytes.HasPrefix(it.key, it.endKey)
	}
	return false
}

// Next advances the cursor and returns StatusOK while a row is
// available, StatusNotFound once the range or limit is exhausted.
func (it *cursorIterator) Next() kvengine.Status {
	if it.exhausted {
		return kvengine.StatusNotFound
	}
	if !it.started {
		it.started = true
	} else {
		if it.reverse {
			it.key, it.val = it.c.Prev()
		} else {
			it.key, it.val = it.c.Next()
		}
	}
	if it.pastEnd() {
		it.exhausted = true
		return kvengine.StatusNotFound
	}
	if it.limit > 0 && it.emitted >= it.limit {
		it.exhausted = true
		return kvengine.StatusNotFound
	}
	it.emitted++
	return kvengine.StatusOK
}

func (it *cursorIterator) ReadKey() []byte   { return append([]byte(nil), it.key...) }
func (it *cursorIterator) ReadValue() []byte { return append([]byte(nil), it.val...) }
func (it *cursorIterator) Close()            {}

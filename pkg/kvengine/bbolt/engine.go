// Package bbolt adapts go.etcd.io/bbolt to the kvengine interfaces,
// generalizing the teacher's per-entity bucket-and-JSON pattern
// (pkg/storage/boltdb.go) to raw encoded-key/value storage keyed by
// table/index name, one bucket per storage.
package bbolt

import (
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/relkv/pkg/kvengine"
	"github.com/cuemby/relkv/pkg/rlog"
)

// Engine is a kvengine.Database backed by a single bbolt file.
type Engine struct {
	db *bolt.DB
}

// Open opens (creating if absent) the bbolt file at path.
func Open(path string) (*Engine, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bbolt store: %w", err)
	}
	return &Engine{db: db}, nil
}

func (e *Engine) Close() error { return e.db.Close() }

// CreateStorage ensures a bucket exists for name and returns a handle to it.
func (e *Engine) CreateStorage(name string, opts kvengine.StorageOptions) (kvengine.Storage, error) {
	err := e.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create storage %s: %w", name, err)
	}
	return &storage{engine: e, name: name}, nil
}

// GetStorage returns a handle to an existing bucket.
func (e *Engine) GetStorage(name string) (kvengine.Storage, bool) {
	exists := false
	_ = e.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket([]byte(name)) != nil
		return nil
	})
	if !exists {
		return nil, false
	}
	return &storage{engine: e, name: name}, true
}

// CreateTransaction opens a manually-managed bbolt transaction (via
// db.Begin) so the execution core can span many operator calls within a
// single KV transaction, mirroring bbolt's documented manual-transaction
// API rather than the single-callback db.Update/View style used for
// one-shot bucket bootstrapping above.
func (e *Engine) CreateTransaction(opts kvengine.TransactionOptions) (kvengine.Transaction, error) {
	btx, err := e.db.Begin(!opts.ReadOnly)
	if err != nil {
		return nil, fmt.Errorf("begin bbolt transaction: %w", err)
	}
	return &transaction{btx: btx, opts: opts}, nil
}

type transaction struct {
	btx  *bolt.Tx
	opts kvengine.TransactionOptions
}

func (t *transaction) Commit(opt kvengine.CommitOption, onCompletion func(kvengine.Status)) kvengine.Status {
	if err := t.btx.Commit(); err != nil {
		rlog.Logger.Error().Err(err).Msg("bbolt commit failed")
		if onCompletion != nil {
			onCompletion(kvengine.StatusErrIllegalOperation)
		}
		return kvengine.StatusErrIllegalOperation
	}
	if onCompletion != nil {
		onCompletion(kvengine.StatusOK)
	}
	return kvengine.StatusOK
}

func (t *transaction) Abort() kvengine.Status {
	if err := t.btx.Rollback(); err != nil {
		return kvengine.StatusErrIllegalOperation
	}
	return kvengine.StatusOK
}

// WaitForCommit is synchronous in this adapter: bbolt's Commit already
// durably writes before returning, so there is nothing to wait for.
func (t *transaction) WaitForCommit(timeoutNs int64) kvengine.Status {
	return kvengine.StatusOK
}

type storage struct {
	engine *Engine
	name   string
}

func (s *storage) bucket(tx kvengine.Transaction) (*bolt.Bucket, kvengine.Status) {
	btx, ok := tx.(*transaction)
	if !ok {
		return nil, kvengine.StatusErrIllegalOperation
	}
	b := btx.btx.Bucket([]byte(s.name))
	if b == nil {
		return nil, kvengine.StatusErrIllegalOperation
	}
	return b, kvengine.StatusOK
}

func (s *storage) ContentGet(tx kvengine.Transaction, key []byte) ([]byte, kvengine.Status) {
	b, st := s.bucket(tx)
	if st != kvengine.StatusOK {
		return nil, st
	}
	v := b.Get(key)
	if v == nil {
		return nil, kvengine.StatusNotFound
	}
	return append([]byte(nil), v...), kvengine.StatusOK
}

func (s *storage) ContentPut(tx kvengine.Transaction, key, value []byte, opt kvengine.PutOption) kvengine.Status {
	b, st := s.bucket(tx)
	if st != kvengine.StatusOK {
		return st
	}
	existing := b.Get(key) != nil
	switch opt {
	case kvengine.PutCreate:
		if existing {
			return kvengine.StatusErrUniqueConstraintViolation
		}
	case kvengine.PutUpdate:
		if !existing {
			return kvengine.StatusNotFound
		}
	case kvengine.PutCreateOrUpdate:
		// always allowed
	}
	if err := b.Put(key, value); err != nil {
		return kvengine.StatusErrIllegalOperation
	}
	return kvengine.StatusOK
}

func (s *storage) ContentDelete(tx kvengine.Transaction, key []byte) kvengine.Status {
	b, st := s.bucket(tx)
	if st != kvengine.StatusOK {
		return st
	}
	if b.Get(key) == nil {
		return kvengine.StatusNotFound
	}
	if err := b.Delete(key); err != nil {
		return kvengine.StatusErrIllegalOperation
	}
	return kvengine.StatusOK
}

func (s *storage) ContentScan(tx kvengine.Transaction, beginKey []byte, beginKind kvengine.EndpointKind, endKey []byte, endKind kvengine.EndpointKind, limit int, reverse bool) (kvengine.Iterator, kvengine.Status) {
	b, st := s.bucket(tx)
	if st != kvengine.StatusOK {
		return nil, st
	}
	return newCursorIterator(b.Cursor(), beginKey, beginKind, endKey, endKind, limit, reverse), kvengine.StatusOK
}

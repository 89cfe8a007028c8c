package storagemgr

import (
	"encoding/binary"

	"github.com/cuemby/relkv/pkg/rerr"
)

// CurrentMessageVersion is the message-version this build writes and
// accepts unconditionally. Version 1 (pre-1.8) blobs lack the surrogate
// storage key field and are also accepted, with StorageKey decoding as
// empty; any other version is rejected.
const CurrentMessageVersion uint32 = 2

const legacyMessageVersionNoSurrogateKey uint32 = 1

// Metadata is the decoded form of a stored per-index metadata blob.
type Metadata struct {
	TableName      string
	IndexName      string
	Authorized     map[string]ActionSet
	Public         ActionSet
	SurrogateKey   string // "" if absent (legacy version, or never minted)
}

// EncodeMetadata serializes m into the current wire version.
func EncodeMetadata(m Metadata) []byte {
	var buf []byte
	buf = appendUint32(buf, CurrentMessageVersion)
	buf = appendString(buf, m.TableName)
	buf = appendString(buf, m.IndexName)
	buf = appendActionMap(buf, m.Authorized)
	buf = appendActionSet(buf, m.Public)
	buf = appendString(buf, m.SurrogateKey)
	return buf
}

// DecodeMetadata parses a stored blob, rejecting any message version
// other than the current one or the legacy pre-1.8 version.
func DecodeMetadata(b []byte) (Metadata, error) {
	r := &reader{buf: b}
	version, ok := r.uint32()
	if !ok {
		return Metadata{}, rerr.New(rerr.CodeSQLExecutionException, "storage metadata blob too short to contain a version")
	}
	if version != CurrentMessageVersion && version != legacyMessageVersionNoSurrogateKey {
		return Metadata{}, rerr.New(rerr.CodeSQLExecutionException, "unsupported storage metadata version %d", version)
	}

	var m Metadata
	var ok2 bool
	m.TableName, ok2 = r.string()
	if !ok2 {
		return Metadata{}, rerr.New(rerr.CodeSQLExecutionException, "truncated storage metadata: table name")
	}
	m.IndexName, ok2 = r.string()
	if !ok2 {
		return Metadata{}, rerr.New(rerr.CodeSQLExecutionException, "truncated storage metadata: index name")
	}
	m.Authorized, ok2 = r.actionMap()
	if !ok2 {
		return Metadata{}, rerr.New(rerr.CodeSQLExecutionException, "truncated storage metadata: authorized actions")
	}
	m.Public, ok2 = r.actionSet()
	if !ok2 {
		return Metadata{}, rerr.New(rerr.CodeSQLExecutionException, "truncated storage metadata: public actions")
	}
	if version == CurrentMessageVersion {
		m.SurrogateKey, _ = r.string() // absent is tolerated even at current version
	}
	return m, nil
}

// --- minimal length-prefixed encoding helpers ---

type reader struct {
	buf []byte
	pos int
}

func (r *reader) uint32() (uint32, bool) {
	if r.pos+4 > len(r.buf) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, true
}

func (r *reader) bytes() ([]byte, bool) {
	n, ok := r.uint32()
	if !ok || r.pos+int(n) > len(r.buf) {
		return nil, false
	}
	b := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, true
}

func (r *reader) string() (string, bool) {
	b, ok := r.bytes()
	if !ok {
		return "", false
	}
	return string(b), true
}

func (r *reader) actionSet() (ActionSet, bool) {
	n, ok := r.uint32()
	if !ok {
		return nil, false
	}
	set := make(ActionSet, n)
	for i := uint32(0); i < n; i++ {
		s, ok := r.string()
		if !ok {
			return nil, false
		}
		set[Action(s)] = true
	}
	return set, true
}

func (r *reader) actionMap() (map[string]ActionSet, bool) {
	n, ok := r.uint32()
	if !ok {
		return nil, false
	}
	m := make(map[string]ActionSet, n)
	for i := uint32(0); i < n; i++ {
		user, ok := r.string()
		if !ok {
			return nil, false
		}
		set, ok := r.actionSet()
		if !ok {
			return nil, false
		}
		m[user] = set
	}
	return m, true
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendBytes(buf, p []byte) []byte {
	buf = appendUint32(buf, uint32(len(p)))
	return append(buf, p...)
}

func appendString(buf []byte, s string) []byte {
	return appendBytes(buf, []byte(s))
}

func appendActionSet(buf []byte, set ActionSet) []byte {
	buf = appendUint32(buf, uint32(len(set)))
	for a := range set {
		buf = appendString(buf, string(a))
	}
	return buf
}

func appendActionMap(buf []byte, m map[string]ActionSet) []byte {
	buf = appendUint32(buf, uint32(len(m)))
	for user, set := range m {
		buf = appendString(buf, user)
		buf = appendActionSet(buf, set)
	}
	return buf
}

package indexaccess

import (
	"github.com/cuemby/relkv/pkg/kvengine"
	"github.com/cuemby/relkv/pkg/rerr"
)

// translateStatus maps a KV-engine status to the error taxonomy. A nil
// return means the status is not an error (ok, or the caller-handled
// not_found case).
func translateStatus(status kvengine.Status) *rerr.Info {
	switch status {
	case kvengine.StatusOK, kvengine.StatusNotFound:
		return nil
	case kvengine.StatusAlreadyExists, kvengine.StatusErrUniqueConstraintViolation:
		return rerr.New(rerr.CodeUniqueConstraintViolation, "unique constraint violated").WithOriginStatus(string(status))
	case kvengine.StatusConcurrentOperation:
		return rerr.New(rerr.CodeOCCWrite, "blocked by a concurrent operation").WithOriginStatus(string(status))
	case kvengine.StatusSerializationFailure:
		return rerr.New(rerr.CodeOCCRead, "serialization failure").WithOriginStatus(string(status))
	case kvengine.StatusErrIntegrityConstraintViolation:
		return rerr.New(rerr.CodeNotNullConstraintViolation, "integrity constraint violated").WithOriginStatus(string(status))
	case kvengine.StatusErrInactiveTransaction:
		return rerr.New(rerr.CodeInactiveTransaction, "transaction is not active").WithOriginStatus(string(status))
	case kvengine.StatusErrIllegalOperation:
		return rerr.New(rerr.CodeInternal, "illegal operation against KV engine").WithOriginStatus(string(status))
	default:
		return rerr.New(rerr.CodeInternal, "unrecognized KV engine status %q", status)
	}
}

package unichrome

import (
	"errors"
	"fmt"

	"github.com/xDarkicex/unichrome/internal/hnsw"
)

// ErrorCode classifies the kind of failure an *Error carries, so callers
// can branch with errors.Is against the package-level sentinels below
// instead of string-matching messages.
type ErrorCode int

const (
	CodeNotFound ErrorCode = iota
	CodeAlreadyExists
	CodeDimensionMismatch
	CodeGraphChanged
	CodeInvalidFilter
	CodeIO
	CodeEmbedding
)

func (c ErrorCode) String() string {
	switch c {
	case CodeNotFound:
		return "not_found"
	case CodeAlreadyExists:
		return "already_exists"
	case CodeDimensionMismatch:
		return "dimension_mismatch"
	case CodeGraphChanged:
		return "graph_changed"
	case CodeInvalidFilter:
		return "invalid_filter"
	case CodeIO:
		return "io"
	case CodeEmbedding:
		return "embedding"
	default:
		return "unknown"
	}
}

// Error is the single error type the package returns. Op names the
// operation that failed (e.g. "Collection.AddDocument"); Err, when set,
// is the underlying cause and participates in errors.Is/errors.As via
// Unwrap.
type Error struct {
	Code ErrorCode
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unichrome: %s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("unichrome: %s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, CodeX's sentinel) match any *Error sharing the
// same Code, regardless of Op or wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newErr(code ErrorCode, op string, cause error) *Error {
	return &Error{Code: code, Op: op, Err: cause}
}

// Sentinel values for errors.Is comparisons; Op and Err are irrelevant to
// the match since (*Error).Is compares Code only.
var (
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrAlreadyExists     = &Error{Code: CodeAlreadyExists}
	ErrDimensionMismatch = &Error{Code: CodeDimensionMismatch}
	ErrGraphChanged      = &Error{Code: CodeGraphChanged}
	ErrInvalidFilter     = &Error{Code: CodeInvalidFilter}
	ErrIO                = &Error{Code: CodeIO}
	ErrEmbedding         = &Error{Code: CodeEmbedding}
)

// asGraphChanged wraps hnsw's retry-exhausted sentinel as a package Error
// so callers only ever need to errors.Is against this package's codes.
func asGraphChanged(op string, err error) *Error {
	if errors.Is(err, hnsw.ErrGraphChanged) {
		return newErr(CodeGraphChanged, op, err)
	}
	return newErr(CodeIO, op, err)
}

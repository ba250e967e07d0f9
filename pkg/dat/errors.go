package dat

import (
	"errors"
	"fmt"

	"github.com/samcharles93/datkit/pkg/datio"
)

var (
	ErrMissingEOF    = errors.New("missing EOF chunk")
	ErrMisplacedEOF  = errors.New("EOF chunk before the end of the file")
	ErrNoID          = errors.New("chunk kind has no id")
	ErrDuplicateKind = errors.New("chunk kind already registered")
	ErrUnknownKind   = errors.New("unknown chunk kind")
	ErrNoSchemas     = errors.New("no schema provider configured")
)

type idRangeError struct {
	what string
	id   uint64
	kind *Kind
	err  error
}

func (e *idRangeError) Error() string {
	return fmt.Sprintf("dat: %s %d does not fit the %d-byte %s field of %s chunks",
		e.what, e.id, e.kind.idWidth(), e.what, e.kind.Name)
}

func (e *idRangeError) Unwrap() error {
	if e.err != nil {
		return e.err
	}
	return datio.ErrCapacity
}

func idWriteError(what string, id uint64, k *Kind, err error) error {
	if errors.Is(err, datio.ErrCapacity) {
		return &idRangeError{what: what, id: id, kind: k, err: err}
	}
	return fmt.Errorf("dat: write %s of %s chunk: %w", what, k.Name, err)
}

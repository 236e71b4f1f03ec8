package file

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds  = errors.New("out of bounds")
	ErrInvalidUTF8  = errors.New("invalid utf-8")
	ErrShortRead    = errors.New("short read")
	ErrPageSize     = errors.New("page size does not match block size")
	ErrClosed       = errors.New("file manager is closed")
	ErrNotDirectory = errors.New("not a directory")
)

// BoundsError reports a field access of Length bytes at Offset that does not fit in a page of Size bytes.
type BoundsError struct {
	Offset int32
	Length int64
	Size   int32
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("access of %d bytes at offset %d exceeds page size %d", e.Length, e.Offset, e.Size)
}

func (e *BoundsError) Is(target error) bool {
	return target == ErrOutOfBounds
}

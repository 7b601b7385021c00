package tablet

import "errors"

var (
	// ErrAlreadyClosed is returned when a Handle is used, or closed, after
	// it has already been closed.
	ErrAlreadyClosed = errors.New("tablet: handle already closed")

	// ErrOpenFilesStillReserved is returned by Close when scan files are
	// still reserved against this handle.
	ErrOpenFilesStillReserved = errors.New("tablet: open files still reserved")
)

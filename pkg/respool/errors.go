package respool

import "errors"

var (
	// ErrDuplicatePool is returned by Registry.Register when a pool name is
	// already taken.
	ErrDuplicatePool = errors.New("respool: duplicate pool name")

	// ErrPoolClosed is returned by Pool.Submit once the pool has begun
	// shutting down.
	ErrPoolClosed = errors.New("respool: pool is shut down")

	// ErrUnknownPool is returned when a caller asks the registry for a pool
	// name it never registered.
	ErrUnknownPool = errors.New("respool: unknown pool")
)

package resmgr

import "errors"

var (
	// ErrCacheConfiguration is returned at startup when the configured
	// native-map, data-cache, and index-cache sizes cannot fit in the
	// process's heap.
	ErrCacheConfiguration = errors.New("resmgr: cache and map sizes exceed available heap")

	// ErrHoldTimeout is returned by WaitUntilCommitsEnabled once rpc.timeout
	// elapses while commits are still held.
	ErrHoldTimeout = errors.New("resmgr: timed out waiting for commits to be enabled")
)

package core

import (
	"errors"
)

var (
	ErrNotInitialized = errors.New("renderer used before initialization")
	ErrContextLost    = errors.New("rendering context lost")
	ErrStaleHandle    = errors.New("stale handle")
	ErrInvalidHandle  = errors.New("invalid handle")
	ErrCycle          = errors.New("operation would create a cycle in the scene graph")
	ErrDisposed       = errors.New("resource already disposed")
	ErrCompileFailed  = errors.New("program compilation failed")
	ErrResourceLimit  = errors.New("resource limit exceeded")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrUnknown        = errors.New("unknown")
)

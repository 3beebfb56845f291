package service

import "errors"

// Sentinel errors returned by Submit.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = errors.New("analysis queue is full")
	ErrDuplicate    = errors.New("analysis with this key is already running")
)

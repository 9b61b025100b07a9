package sync

import "errors"

var (
	ErrPushFailed     = errors.New("push failed")
	ErrPullFailed     = errors.New("pull failed")
	ErrPersistFailed  = errors.New("persist failed")
	ErrSyncInProgress = errors.New("sync already in progress")
)

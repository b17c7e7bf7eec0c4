package pkg

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSummaryNotFound = errors.New("summary not found")
	ErrWalletRequired  = errors.New("no wallet connected")
	ErrEmptyMessage    = errors.New("empty message")
)

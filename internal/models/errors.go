package models

import "errors"

// Sentinel errors shared by stores and services. Handlers map them to HTTP
// status codes with errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrExpiredOrInvalidToken = errors.New("confirmation token is invalid or has expired")
	ErrSubscriberNotFound    = errors.New("subscriber not found")
	ErrNoContent             = errors.New("no content available for bulletin")
	ErrAlreadySent           = errors.New("bulletin already sent")
	ErrDispatchInProgress    = errors.New("bulletin dispatch already in progress")
	ErrInvalidInput          = errors.New("invalid input")
	ErrDuplicate             = errors.New("duplicate key")
)

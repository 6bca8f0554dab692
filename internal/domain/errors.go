package domain

import "errors"

var (
	ErrSessionNotFound       = errors.New("session not found")
	ErrSessionIDTaken        = errors.New("session id already in use")
	ErrInvalidSessionID      = errors.New("invalid session id")
	ErrInvalidURLPrefix      = errors.New("url prefix is empty")
	ErrMalformedAnnotation   = errors.New("malformed annotation")
	ErrRegistrationExhausted = errors.New("session id generation exhausted")
)

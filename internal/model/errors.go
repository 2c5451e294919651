package model

import "errors"

var (
	// ErrEmptyMessage is returned when a chat message body is empty after trimming.
	ErrEmptyMessage = errors.New("message content is empty")

	// ErrMessageTooLong is returned when a chat message body exceeds MaxMessageLength.
	ErrMessageTooLong = errors.New("message content too long")

	// ErrMessageNotFound is returned when a chat message is not found.
	ErrMessageNotFound = errors.New("message not found")

	// ErrForbidden is returned when access to a resource is forbidden.
	ErrForbidden = errors.New("forbidden")
)

package core

import (
	"errors"
)

var (
	// ErrMissingFields is returned when an add or reconnect request
	// omits required fields
	ErrMissingFields = errors.New("all fields are required")

	// ErrAccountNotFound is returned when a reconnect is requested for
	// an email with no saved configuration
	ErrAccountNotFound = errors.New("no saved configuration found for this email")
)

package domain

import "errors"

var (
	// ErrNotFound is returned by stores when a participant or conversation
	// document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidID is returned by stores for ids that cannot name a document.
	ErrInvalidID = errors.New("invalid id")

	// ErrGeneratorUnavailable reports a transport or upstream failure of the
	// reply generator.
	ErrGeneratorUnavailable = errors.New("reply generator unavailable")

	// ErrGeneratorTimeout reports that a generator call exceeded its deadline.
	ErrGeneratorTimeout = errors.New("reply generator timeout")
)

package cache

import "errors"

// Sentinel errors for cache operations.
var (
	ErrNilStore   = errors.New("cache: store is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")

	// ErrNilDescriptor is returned when an operation receives no descriptor.
	ErrNilDescriptor = errors.New("cache: descriptor is nil")

	// ErrUnknownGroup is returned when a dependency names a group that is not configured.
	ErrUnknownGroup = errors.New("cache: unknown group")

	// ErrUnknownKey is returned when a lookup or dependency names a key that is not configured.
	ErrUnknownKey = errors.New("cache: unknown key")

	// ErrDuplicateKey is returned when a group declares the same key twice.
	ErrDuplicateKey = errors.New("cache: duplicate key")

	// ErrDuplicateGroup is returned when two groups share a name.
	ErrDuplicateGroup = errors.New("cache: duplicate group")

	// ErrReservedGroup is returned when configuration tries to declare a reserved group.
	ErrReservedGroup = errors.New("cache: group name is reserved")

	// ErrInvalidName is returned when a group or key name contains KeySeparator.
	ErrInvalidName = errors.New("cache: name contains key separator")
)

package domain

// LookupState tells whether an expected element was present on the data source.
type LookupState int

const (
	LookupFound LookupState = iota
	LookupNotFound
	LookupTimeout
)

func (s LookupState) String() string {
	switch s {
	case LookupFound:
		return "found"
	case LookupNotFound:
		return "not found"
	case LookupTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Lookup carries a value only when State is LookupFound.
type Lookup[T any] struct {
	State LookupState
	Value T
}

// Found wraps a present value.
func Found[T any](v T) Lookup[T] {
	return Lookup[T]{State: LookupFound, Value: v}
}

// NotFound reports an absent element.
func NotFound[T any]() Lookup[T] {
	return Lookup[T]{State: LookupNotFound}
}

// TimedOut reports that waiting for the element expired.
func TimedOut[T any]() Lookup[T] {
	return Lookup[T]{State: LookupTimeout}
}

// Ok reports whether the value is present.
func (l Lookup[T]) Ok() bool {
	return l.State == LookupFound
}

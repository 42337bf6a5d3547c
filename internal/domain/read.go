package domain

import "math/big"

// ReadResult is the outcome of one contract read in a batch. A result is
// either Present with a decoded value or Absent (pending, failed, or never
// issued). Callers convert it to a concrete value with the typed accessors.
type ReadResult struct {
	value   any
	err     error
	present bool
}

// Present wraps a successfully decoded value.
func Present(v any) ReadResult {
	return ReadResult{value: v, present: true}
}

// Absent marks a read that produced no value. err may be nil for reads that
// are still pending.
func Absent(err error) ReadResult {
	return ReadResult{err: err}
}

// IsPresent reports whether the read produced a value.
func (r ReadResult) IsPresent() bool { return r.present }

// Err returns the failure that made the read absent, if any.
func (r ReadResult) Err() error { return r.err }

// Value returns the raw decoded value, or nil when absent.
func (r ReadResult) Value() any { return r.value }

// BigInt returns the value as an unsigned integer. ok is false when the read
// is absent or holds something other than a non-negative *big.Int.
func (r ReadResult) BigInt() (n *big.Int, ok bool) {
	if !r.present {
		return nil, false
	}
	v, isInt := r.value.(*big.Int)
	if !isInt || v == nil || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

// Market returns the value as a RawMarket tuple.
func (r ReadResult) Market() (RawMarket, bool) {
	if !r.present {
		return RawMarket{}, false
	}
	switch v := r.value.(type) {
	case RawMarket:
		return v, true
	case *RawMarket:
		if v == nil {
			return RawMarket{}, false
		}
		return *v, true
	default:
		return RawMarket{}, false
	}
}

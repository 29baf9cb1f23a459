package cache

import "errors"

// ErrWouldBlock is returned by GetAndRef when the read side of the hash
// lock could not be acquired immediately. Callers may retry; taskbridge
// turns it into a cooperative yield.
var ErrWouldBlock = errors.New("cache: would block")

// ErrContention is returned when the deduplicated-construction retry loop
// (a key repeatedly appears to exist and then vanishes on re-lookup, which
// only happens under sustained concurrent churn on the same key) exceeds
// its bound. See DESIGN.md for why this is bounded rather than unbounded.
var ErrContention = errors.New("cache: construction retry limit exceeded")

package matching

import "errors"

// ErrUncrossable is returned when a pool's book cannot cross without
// violating a resting order's minimum-quantity constraint, signalling the
// caller to fall back to an empty-block attestation.
var ErrUncrossable = errors.New("matching: book is uncrossable at any price within per-order constraints")

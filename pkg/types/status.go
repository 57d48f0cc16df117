package types

// StatusState is the unsigned body of a handshake Status message.
type StatusState struct {
	Version     uint8
	ChainId     uint64
	Peer        PeerId
	TimestampMs uint64 // milliseconds since epoch; the wire field is u128 but a
	// millisecond timestamp fits uint64 for about 584 million years after 1970.
}

// Status is a signed StatusState, exchanged exactly once per direction
// during session Startup.
type Status struct {
	State     StatusState
	Signature Signature
}

// ReplayWindowMs is the freshness window a receiver enforces on an inbound
// Status: now_ms <= status.timestamp_ms + ReplayWindowMs.
const ReplayWindowMs = 1500

package session

import "fmt"

// HandshakeErrorKind classifies why a Startup handshake, or a later Status
// breach, was rejected.
type HandshakeErrorKind uint8

const (
	// StatusNotInHandshake: a Status frame arrived after Startup completed.
	StatusNotInHandshake HandshakeErrorKind = iota
	// NonStatusInHandshake: the first inbound frame was not a Status.
	NonStatusInHandshake
	// NoResponse: the peer never delivered its Status within the initial
	// request timeout.
	NoResponse
	// MismatchedProtocolVersion: the peer speaks a different strom version.
	MismatchedProtocolVersion
	// InvalidStakeVerificationSignature: the Status signature failed to
	// recover to the declared peer, or the Status fell outside the replay
	// window.
	InvalidStakeVerificationSignature
	// NotAValidGuardNode: the peer's derived validator address is not in
	// the committee allow-list (or the peer is banned).
	NotAValidGuardNode
)

func (k HandshakeErrorKind) String() string {
	switch k {
	case StatusNotInHandshake:
		return "StatusNotInHandshake"
	case NonStatusInHandshake:
		return "NonStatusInHandshake"
	case NoResponse:
		return "NoResponse"
	case MismatchedProtocolVersion:
		return "MismatchedProtocolVersion"
	case InvalidStakeVerificationSignature:
		return "InvalidStakeVerificationSignature"
	case NotAValidGuardNode:
		return "NotAValidGuardNode"
	default:
		return "Unknown"
	}
}

// StromHandshakeError is a typed handshake rejection. It is fatal to the
// session, non-fatal to the process.
type StromHandshakeError struct {
	Kind        HandshakeErrorKind
	GotVersion  uint8
	WantVersion uint8
	Detail      string
}

func (e *StromHandshakeError) Error() string {
	if e.Kind == MismatchedProtocolVersion {
		return fmt.Sprintf("session: %s: got %d want %d", e.Kind, e.GotVersion, e.WantVersion)
	}
	if e.Detail == "" {
		return fmt.Sprintf("session: %s", e.Kind)
	}
	return fmt.Sprintf("session: %s: %s", e.Kind, e.Detail)
}

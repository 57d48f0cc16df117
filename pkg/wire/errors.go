package wire

import "fmt"

// MessageTooBigError reports a frame whose body exceeds MaxFrameBytes; the
// session treats it as a protocol breach by the peer.
type MessageTooBigError struct {
	Size int
}

func (e *MessageTooBigError) Error() string {
	return fmt.Sprintf("wire: message of %d bytes exceeds max %d", e.Size, MaxFrameBytes)
}

// InvalidMessageError reports a frame that could not be decoded: an empty
// body, an unknown tag byte, or a payload the tag's codec rejects.
type InvalidMessageError struct {
	MessageId MessageId
	Detail    string
}

func (e *InvalidMessageError) Error() string {
	return fmt.Sprintf("wire: invalid %s message: %s", e.MessageId, e.Detail)
}

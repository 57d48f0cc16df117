package wire

import (
	"fmt"

	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// MessageId tags the variant of a StromMessage on the wire. The byte value
// is the frame's first byte.
type MessageId uint8

const (
	MessageStatus MessageId = iota
	MessagePropagatePooledOrders
	MessagePrePropose
	MessagePreProposeAgg
	MessagePropose
	MessageCancelOrder
	MessageReset
)

func (m MessageId) String() string {
	switch m {
	case MessageStatus:
		return "Status"
	case MessagePropagatePooledOrders:
		return "PropagatePooledOrders"
	case MessagePrePropose:
		return "PrePropose"
	case MessagePreProposeAgg:
		return "PreProposeAgg"
	case MessagePropose:
		return "Propose"
	case MessageCancelOrder:
		return "CancelOrder"
	case MessageReset:
		return "Reset"
	default:
		return "Unknown"
	}
}

// MaxFrameBytes is the largest frame body the session will decode; a
// bigger inbound frame is a protocol breach.
const MaxFrameBytes = 10 * 1024 * 1024

// CancelOrderRequest is the signed request a user sends to cancel a
// resting order.
type CancelOrderRequest struct {
	OrderHash types.OrderHash
	Signer    types.Address
	Signature types.Signature
}

// StromProtocolMessage is a decoded inbound or to-be-encoded outbound
// frame: a tag plus the tag-specific payload.
type StromProtocolMessage struct {
	MessageId             MessageId
	Status                *types.Status
	PropagatePooledOrders []types.AllOrders
	PrePropose            *types.PreProposal
	PreProposeAgg         *types.PreProposalAggregation
	Propose               *types.Proposal
	CancelOrder           *CancelOrderRequest
	// Reset carries no payload.
}

// EncodeFrame serializes one StromMessage into a wire frame: one tag byte
// followed by the canonical CBOR encoding of its payload.
func EncodeFrame(m StromProtocolMessage) ([]byte, error) {
	var payload interface{}
	switch m.MessageId {
	case MessageStatus:
		payload = m.Status
	case MessagePropagatePooledOrders:
		payload = m.PropagatePooledOrders
	case MessagePrePropose:
		payload = m.PrePropose
	case MessagePreProposeAgg:
		payload = m.PreProposeAgg
	case MessagePropose:
		payload = m.Propose
	case MessageCancelOrder:
		payload = m.CancelOrder
	case MessageReset:
		payload = struct{}{}
	default:
		return nil, fmt.Errorf("wire: unknown message id %d", m.MessageId)
	}
	body, err := Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wire: encode frame %s: %w", m.MessageId, err)
	}
	if len(body)+1 > MaxFrameBytes {
		return nil, &MessageTooBigError{Size: len(body) + 1}
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(m.MessageId))
	out = append(out, body...)
	return out, nil
}

// DecodeFrame parses a wire frame back into a StromProtocolMessage. An
// oversize or undecodable frame is a protocol breach the session reports
// to the manager.
func DecodeFrame(frame []byte) (StromProtocolMessage, error) {
	if len(frame) > MaxFrameBytes {
		return StromProtocolMessage{}, &MessageTooBigError{Size: len(frame)}
	}
	if len(frame) < 1 {
		return StromProtocolMessage{}, &InvalidMessageError{Detail: "empty frame"}
	}
	id := MessageId(frame[0])
	body := frame[1:]
	m := StromProtocolMessage{MessageId: id}
	var err error
	switch id {
	case MessageStatus:
		m.Status = new(types.Status)
		err = Unmarshal(body, m.Status)
	case MessagePropagatePooledOrders:
		err = Unmarshal(body, &m.PropagatePooledOrders)
	case MessagePrePropose:
		m.PrePropose = new(types.PreProposal)
		err = Unmarshal(body, m.PrePropose)
	case MessagePreProposeAgg:
		m.PreProposeAgg = new(types.PreProposalAggregation)
		err = Unmarshal(body, m.PreProposeAgg)
	case MessagePropose:
		m.Propose = new(types.Proposal)
		err = Unmarshal(body, m.Propose)
	case MessageCancelOrder:
		m.CancelOrder = new(CancelOrderRequest)
		err = Unmarshal(body, m.CancelOrder)
	case MessageReset:
		var empty struct{}
		err = Unmarshal(body, &empty)
	default:
		return StromProtocolMessage{}, &InvalidMessageError{MessageId: id, Detail: "unknown message id"}
	}
	if err != nil {
		return StromProtocolMessage{}, &InvalidMessageError{MessageId: id, Detail: err.Error()}
	}
	return m, nil
}

package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angstrom-protocol/angstrom/internal/orderpool"
	"github.com/angstrom-protocol/angstrom/pkg/types"
)

func TestOrderSubscriptionFiltersByKindAndPair(t *testing.T) {
	h := New()
	poolA := types.Hash{0xaa}
	poolB := types.Hash{0xbb}

	sub, cancel := h.SubscribeOrders([]orderpool.EventKind{orderpool.NewOrders}, Filter{Kind: FilterByPair, PoolId: poolA})
	defer cancel()

	h.OnOrderPoolEvent(orderpool.Event{Kind: orderpool.NewOrders, PoolId: poolB})
	h.OnOrderPoolEvent(orderpool.Event{Kind: orderpool.CancelledOrders, PoolId: poolA})
	h.OnOrderPoolEvent(orderpool.Event{Kind: orderpool.NewOrders, PoolId: poolA})

	select {
	case ev := <-sub.Events():
		require.Equal(t, poolA, ev.PoolId)
		require.Equal(t, orderpool.NewOrders, ev.Kind)
	default:
		t.Fatal("expected exactly one matching event to be delivered")
	}

	select {
	case <-sub.Events():
		t.Fatal("expected no further events")
	default:
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := New()
	ch, cancel := h.SubscribeBlockEvents()
	cancel()

	h.PublishBlockEvent(BlockEvent{Number: 1})

	select {
	case ev := <-ch:
		t.Fatalf("expected no event after unsubscribe, got %+v", ev)
	default:
	}
}

func TestEmptyBlockAttestationFanout(t *testing.T) {
	h := New()
	ch, cancel := h.SubscribeEmptyBlockAttestations()
	defer cancel()

	att := types.AttestAngstromBlockEmpty{BlockHeight: 7}
	h.PublishConsensusEvent(ConsensusEvent{Kind: ConsensusEmptyBlock, BlockHeight: 7, Attestation: &att})

	select {
	case got := <-ch:
		require.Equal(t, uint64(7), got.BlockHeight)
	default:
		t.Fatal("expected attestation to be delivered")
	}
}

func TestSubscriptionBufferDropsWhenFull(t *testing.T) {
	h := New()
	ch, cancel := h.SubscribePeerEvents()
	defer cancel()

	for i := 0; i < SubscriptionBufferSize+10; i++ {
		h.PublishPeerEvent(PeerEvent{Kind: PeerConnected})
	}
	require.Len(t, ch, SubscriptionBufferSize)
}

package network

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/angstrom-protocol/angstrom/internal/obs"
	"github.com/angstrom-protocol/angstrom/internal/reputation"
	"github.com/angstrom-protocol/angstrom/internal/session"
	"github.com/angstrom-protocol/angstrom/internal/validatorset"
	"github.com/angstrom-protocol/angstrom/pkg/signer"
	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/angstrom-protocol/angstrom/pkg/wire"
	"github.com/stretchr/testify/require"
)

type pipeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   *sync.Once
	desc   string
}

func newPipePair() (*pipeConn, *pipeConn) {
	ab := make(chan []byte, 16)
	ba := make(chan []byte, 16)
	closed := make(chan struct{})
	once := &sync.Once{}
	a := &pipeConn{in: ba, out: ab, closed: closed, once: once, desc: "pipe-a"}
	b := &pipeConn{in: ab, out: ba, closed: closed, once: once, desc: "pipe-b"}
	return a, b
}

func (c *pipeConn) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case f := <-c.in:
		return f, nil
	case <-c.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *pipeConn) WriteFrame(ctx context.Context, frame []byte) error {
	select {
	case c.out <- frame:
		return nil
	case <-c.closed:
		return io.ErrClosedPipe
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *pipeConn) RemoteDescription() string { return c.desc }

type sinkRecorder struct {
	mu   sync.Mutex
	msgs []wire.StromProtocolMessage
}

func (s *sinkRecorder) HandleStromMessage(from types.PeerId, msg wire.StromProtocolMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *sinkRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

type harness struct {
	manager *Manager
	rep     *reputation.Manager
	set     *validatorset.Set
	local   *signer.Signer
	remote  *signer.Signer
	conn    *pipeConn // remote's end of the pipe
}

// dial spins up a real session wired to the manager and completes the
// handshake from the remote side by hand, returning once the session is
// live.
func dial(t *testing.T) *harness {
	t.Helper()
	require := require.New(t)

	local, err := signer.New()
	require.NoError(err)
	remote, err := signer.New()
	require.NoError(err)

	set := validatorset.New([]types.Address{local.Address(), remote.Address()})
	rep := reputation.NewManager()
	m := New(set, rep, obs.NoOp())

	connLocal, connRemote := newPipePair()
	sess := session.New(connLocal, session.Inbound, session.Config{
		Self:             local,
		ChainId:          1,
		AllowedValidator: m.AllowedValidator,
	}, m, obs.NoOp())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sess.Run(ctx)

	// Remote half of the handshake.
	_, err = connRemote.ReadFrame(ctx)
	require.NoError(err)
	state := types.StatusState{
		Version:     session.ProtocolVersion,
		ChainId:     1,
		Peer:        remote.PeerId(),
		TimestampMs: uint64(time.Now().UnixMilli()),
	}
	sig, err := remote.Sign(wire.StatusHash(state))
	require.NoError(err)
	frame, err := wire.EncodeFrame(wire.StromProtocolMessage{
		MessageId: wire.MessageStatus,
		Status:    &types.Status{State: state, Signature: sig},
	})
	require.NoError(err)
	require.NoError(connRemote.WriteFrame(ctx, frame))

	require.Eventually(func() bool { return m.PeerCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	return &harness{manager: m, rep: rep, set: set, local: local, remote: remote, conn: connRemote}
}

func TestManagerTracksEstablishedSessions(t *testing.T) {
	require := require.New(t)
	h := dial(t)
	require.Equal(1, h.manager.PeerCount())

	// Send routes through the session's command channel out to the peer.
	pp := types.PreProposal{BlockHeight: 9, Source: h.local.PeerId()}
	ok := h.manager.Send(h.remote.PeerId(), wire.StromProtocolMessage{MessageId: wire.MessagePrePropose, PrePropose: &pp})
	require.True(ok)

	frame, err := h.conn.ReadFrame(context.Background())
	require.NoError(err)
	msg, err := wire.DecodeFrame(frame)
	require.NoError(err)
	require.Equal(wire.MessagePrePropose, msg.MessageId)
	require.Equal(uint64(9), msg.PrePropose.BlockHeight)

	// Broadcast reaches the same (sole) peer.
	h.manager.Broadcast(wire.StromProtocolMessage{MessageId: wire.MessageReset})
	frame, err = h.conn.ReadFrame(context.Background())
	require.NoError(err)
	msg, err = wire.DecodeFrame(frame)
	require.NoError(err)
	require.Equal(wire.MessageReset, msg.MessageId)
}

func TestInboundMessagesFanOutToSinks(t *testing.T) {
	require := require.New(t)
	h := dial(t)

	sink := &sinkRecorder{}
	h.manager.AddSink(sink)

	pp := types.PreProposal{BlockHeight: 3, Source: h.remote.PeerId()}
	frame, err := wire.EncodeFrame(wire.StromProtocolMessage{MessageId: wire.MessagePrePropose, PrePropose: &pp})
	require.NoError(err)
	require.NoError(h.conn.WriteFrame(context.Background(), frame))

	require.Eventually(func() bool { return sink.count() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestRepeatedBreachesBanAndDisconnect(t *testing.T) {
	require := require.New(t)
	h := dial(t)
	peer := h.remote.PeerId()

	// Nine bad messages leave the peer connected but deep in the red.
	for i := 0; i < 9; i++ {
		h.manager.BadMessage(peer)
	}
	require.False(h.rep.IsBanned(peer))
	require.Equal(1, h.manager.PeerCount())

	// The tenth crosses 50 * unit: ban, disconnect, and future connection
	// attempts are refused at the gate.
	h.manager.BadMessage(peer)
	require.True(h.rep.IsBanned(peer))
	require.Eventually(func() bool { return h.manager.PeerCount() == 0 }, 5*time.Second, 10*time.Millisecond)
	require.False(h.manager.AllowedValidator(peer))
}

func TestOnlyResetRaisesReputation(t *testing.T) {
	require := require.New(t)
	rep := reputation.NewManager()
	s, err := signer.New()
	require.NoError(err)
	peer := s.PeerId()

	prev := rep.Score(peer)
	for _, kind := range []reputation.ChangeKind{
		reputation.BadMessage, reputation.BadOrder, reputation.BadComposableOrder,
		reputation.BadBundle, reputation.InvalidOrder,
	} {
		score, _ := rep.Apply(peer, kind)
		require.LessOrEqual(score, prev)
		prev = score
	}

	score, _ := rep.Apply(peer, reputation.Reset)
	require.Equal(reputation.Score(0), score)
}

func TestValidatorRemovalDisconnectsSession(t *testing.T) {
	require := require.New(t)
	h := dial(t)
	require.Equal(1, h.manager.PeerCount())

	h.set.RemoveValidator(h.remote.Address())
	require.Eventually(func() bool { return h.manager.PeerCount() == 0 }, 5*time.Second, 10*time.Millisecond)

	// And the gate now refuses the peer outright.
	require.False(h.manager.AllowedValidator(h.remote.PeerId()))
}

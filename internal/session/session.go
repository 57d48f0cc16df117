package session

import (
	"context"
	"fmt"
	"time"

	"github.com/angstrom-protocol/angstrom/internal/obs"
	"github.com/angstrom-protocol/angstrom/pkg/signer"
	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/angstrom-protocol/angstrom/pkg/wire"
)

// State is one of the session's three substates.
type State uint8

const (
	StateStartup State = iota
	StateRegular
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateStartup:
		return "Startup"
	case StateRegular:
		return "Regular"
	case StateShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// CommandBufferSize is the bounded depth of a session's outbound command
// channel.
const CommandBufferSize = 32

// InitialRequestTimeout bounds the Startup handshake; ProtocolBreachTimeout
// bounds each frame write in the Regular state. Reads in the Regular state
// have no timeout.
const (
	InitialRequestTimeout       = 20 * time.Second
	ProtocolBreachTimeout       = 120 * time.Second
	ProtocolVersion       uint8 = 1
)

// Command is sent to a running Session by the manager.
type Command struct {
	Send       *wire.StromProtocolMessage
	Disconnect bool
}

// Events is the sink a Session reports lifecycle events to — the session
// manager, in production.
type Events interface {
	Established(h *Handle)
	BadMessage(peer types.PeerId)
	InboundMessage(peer types.PeerId, msg wire.StromProtocolMessage)
	Disconnected(peer types.PeerId)
}

// Handle is what the manager keeps per live session.
type Handle struct {
	PeerId        types.PeerId
	Direction     Direction
	EstablishedAt time.Time
	RemoteDesc    string
	commands      chan Command
}

// Send enqueues an outbound message, honoring the bounded command buffer;
// a full buffer signals backpressure to the caller rather than blocking
// forever.
func (h *Handle) Send(msg wire.StromProtocolMessage) bool {
	select {
	case h.commands <- Command{Send: &msg}:
		return true
	default:
		return false
	}
}

// Disconnect requests a graceful shutdown of the session.
func (h *Handle) Disconnect() {
	select {
	case h.commands <- Command{Disconnect: true}:
	default:
	}
}

// Config bundles the identity and chain id a session puts into its own
// Status, and the committee check applied to an inbound Status. The chain id
// of an inbound Status is not compared with ChainId.
type Config struct {
	Self    *signer.Signer
	ChainId uint64
	// AllowedValidator reports whether the validator address derived from
	// a candidate peer id is currently in the committee.
	AllowedValidator func(types.PeerId) bool
}

// Session drives one peer connection through Startup -> Regular ->
// Shutdown.
type Session struct {
	conn   FrameConn
	dir    Direction
	cfg    Config
	events Events
	log    obs.Logger

	state    State
	peer     types.PeerId
	commands chan Command
}

// New constructs a session in the Startup state. Run must be called to
// drive it.
func New(conn FrameConn, dir Direction, cfg Config, events Events, log obs.Logger) *Session {
	return &Session{
		conn:     conn,
		dir:      dir,
		cfg:      cfg,
		events:   events,
		log:      log.With("component", "session", "remote", conn.RemoteDescription()),
		state:    StateStartup,
		commands: make(chan Command, CommandBufferSize),
	}
}

// Run executes the full session lifecycle. It returns once the session has
// reached Shutdown and fully drained, never before.
func (s *Session) Run(ctx context.Context) {
	if err := s.startup(ctx); err != nil {
		s.log.Warn("handshake failed", "err", err)
		s.shutdown(ctx, types.PeerId{})
		return
	}
	s.regular(ctx)
	s.shutdown(ctx, s.peer)
}

// startup runs the handshake: emit exactly one
// Status, receive exactly one Status, validate it, and on success publish
// Established.
func (s *Session) startup(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, InitialRequestTimeout)
	defer cancel()

	outState := types.StatusState{
		Version:     ProtocolVersion,
		ChainId:     s.cfg.ChainId,
		Peer:        s.cfg.Self.PeerId(),
		TimestampMs: uint64(time.Now().UnixMilli()),
	}
	sig, err := s.cfg.Self.Sign(wire.StatusHash(outState))
	if err != nil {
		return fmt.Errorf("session: sign outbound status: %w", err)
	}
	outFrame, err := wire.EncodeFrame(wire.StromProtocolMessage{
		MessageId: wire.MessageStatus,
		Status:    &types.Status{State: outState, Signature: sig},
	})
	if err != nil {
		return fmt.Errorf("session: encode status: %w", err)
	}
	if err := s.conn.WriteFrame(ctx, outFrame); err != nil {
		return fmt.Errorf("session: write status: %w", err)
	}

	inFrame, err := s.conn.ReadFrame(ctx)
	if err != nil {
		return &StromHandshakeError{Kind: NoResponse, Detail: err.Error()}
	}
	in, err := wire.DecodeFrame(inFrame)
	if err != nil {
		return &StromHandshakeError{Kind: NonStatusInHandshake, Detail: err.Error()}
	}
	if in.MessageId != wire.MessageStatus || in.Status == nil {
		return &StromHandshakeError{Kind: NonStatusInHandshake, Detail: "got " + in.MessageId.String()}
	}
	if err := s.verifyStatus(*in.Status); err != nil {
		return err
	}

	s.peer = in.Status.State.Peer
	s.state = StateRegular
	s.events.Established(&Handle{
		PeerId:        s.peer,
		Direction:     s.dir,
		EstablishedAt: time.Now(),
		RemoteDesc:    s.conn.RemoteDescription(),
		commands:      s.commands,
	})
	return nil
}

// verifyStatus enforces the full acceptance rule for an inbound Status:
// version match, signature recovery to the declared peer, freshness, and
// committee membership.
func (s *Session) verifyStatus(status types.Status) error {
	if status.State.Version != ProtocolVersion {
		return &StromHandshakeError{Kind: MismatchedProtocolVersion, GotVersion: status.State.Version, WantVersion: ProtocolVersion}
	}
	hash := wire.StatusHash(status.State)
	recovered, err := signer.Recover(hash, status.Signature)
	if err != nil {
		return &StromHandshakeError{Kind: InvalidStakeVerificationSignature, Detail: err.Error()}
	}
	if recovered != status.State.Peer {
		return &StromHandshakeError{
			Kind:   InvalidStakeVerificationSignature,
			Detail: fmt.Sprintf("signer %s does not match declared peer %s", recovered, status.State.Peer),
		}
	}
	nowMs := uint64(time.Now().UnixMilli())
	if status.State.TimestampMs+types.ReplayWindowMs < nowMs {
		return &StromHandshakeError{
			Kind:   InvalidStakeVerificationSignature,
			Detail: fmt.Sprintf("timestamp %d outside replay window at %d", status.State.TimestampMs, nowMs),
		}
	}
	if s.cfg.AllowedValidator != nil && !s.cfg.AllowedValidator(status.State.Peer) {
		return &StromHandshakeError{Kind: NotAValidGuardNode, Detail: "peer " + status.State.Peer.String()}
	}
	return nil
}

// regular is the steady state: decode inbound frames,
// relay valid ones, and serve outbound commands, until disconnected.
func (s *Session) regular(ctx context.Context) {
	inbound := make(chan []byte, 1)
	inboundErr := make(chan error, 1)
	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()

	go func() {
		for {
			frame, err := s.conn.ReadFrame(readCtx)
			if err != nil {
				inboundErr <- err
				return
			}
			select {
			case inbound <- frame:
			case <-readCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case frame := <-inbound:
			s.handleInboundFrame(ctx, frame)
		case err := <-inboundErr:
			s.log.Debug("inbound closed", "err", err)
			s.state = StateShutdown
			return
		case cmd := <-s.commands:
			if cmd.Disconnect {
				s.state = StateShutdown
				return
			}
			if cmd.Send != nil {
				if err := s.sendFrame(ctx, *cmd.Send); err != nil {
					s.log.Warn("send failed", "err", err)
				}
			}
		case <-ctx.Done():
			s.state = StateShutdown
			return
		}
	}
}

func (s *Session) sendFrame(ctx context.Context, msg wire.StromProtocolMessage) error {
	frame, err := wire.EncodeFrame(msg)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, ProtocolBreachTimeout)
	defer cancel()
	return s.conn.WriteFrame(wctx, frame)
}

func (s *Session) handleInboundFrame(ctx context.Context, frame []byte) {
	if len(frame) > wire.MaxFrameBytes {
		s.log.Warn("protocol breach", "err", &wire.MessageTooBigError{Size: len(frame)})
		s.events.BadMessage(s.peer)
		return
	}
	msg, err := wire.DecodeFrame(frame)
	if err != nil {
		// DecodeFrame returns *wire.MessageTooBigError or
		// *wire.InvalidMessageError; both are breaches, not session-fatal.
		s.log.Warn("protocol breach", "err", err)
		s.events.BadMessage(s.peer)
		return
	}
	if msg.MessageId == wire.MessageStatus {
		// Status is only permitted during Startup; receiving it again is a
		// protocol breach, not a fatal session error.
		s.log.Warn("protocol breach", "err", &StromHandshakeError{Kind: StatusNotInHandshake})
		s.events.BadMessage(s.peer)
		return
	}
	s.events.InboundMessage(s.peer, msg)
}

// shutdown tears the session down: exactly one
// Disconnected event, then the command channel is drained.
func (s *Session) shutdown(ctx context.Context, peer types.PeerId) {
	s.state = StateShutdown
	_ = s.conn.Close()
	s.events.Disconnected(peer)
	for {
		select {
		case <-s.commands:
		default:
			return
		}
	}
}

// CurrentState reports the session's current FSM state, used by tests and
// diagnostics.
func (s *Session) CurrentState() State { return s.state }

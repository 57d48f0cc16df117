package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// Sink is one independent chain-submission route.
type Sink interface {
	Name() string
	Submit(ctx context.Context, tx *Transaction) (types.Hash, error)
}

// RawBroadcaster sends an encoded, signed transaction straight to a node's
// mempool.
type RawBroadcaster interface {
	SendRawTransaction(ctx context.Context, raw []byte) (types.Hash, error)
}

// TxSigner produces the raw signed transaction bytes for calldata, used by
// both the mempool and direct sinks.
type TxSigner interface {
	SignTransaction(ctx context.Context, tx *Transaction) (raw []byte, hash types.Hash, err error)
}

// MempoolSink broadcasts the raw signed transaction to one or more public
// mempool endpoints.
type MempoolSink struct {
	name      string
	signer    TxSigner
	broadcast RawBroadcaster
}

func NewMempoolSink(name string, signer TxSigner, broadcast RawBroadcaster) *MempoolSink {
	return &MempoolSink{name: name, signer: signer, broadcast: broadcast}
}

func (s *MempoolSink) Name() string { return s.name }

func (s *MempoolSink) Submit(ctx context.Context, tx *Transaction) (types.Hash, error) {
	raw, hash, err := s.signer.SignTransaction(ctx, tx)
	if err != nil {
		return types.Hash{}, fmt.Errorf("sign: %w", err)
	}
	if _, err := s.broadcast.SendRawTransaction(ctx, raw); err != nil {
		return types.Hash{}, fmt.Errorf("broadcast: %w", err)
	}
	return hash, nil
}

// relayEnvelope is the private-tx body sent to an MEV-relay endpoint
// ("wrap in a private-tx envelope with a max-block-number equal
// to the target block").
type relayEnvelope struct {
	RawTransaction string `json:"rawTransaction"`
	MaxBlockNumber uint64 `json:"maxBlockNumber"`
}

// RelaySink posts a private-tx envelope to an MEV relay, signing the
// request body with the bundle signer and carrying the signature in the
// X-Flashbots-Signature header.
type RelaySink struct {
	name     string
	endpoint string
	client   *http.Client
	signer   TxSigner
	bundle   *BundleSigner
}

func NewRelaySink(name, endpoint string, client *http.Client, txSigner TxSigner, bundle *BundleSigner) *RelaySink {
	return &RelaySink{name: name, endpoint: endpoint, client: client, signer: txSigner, bundle: bundle}
}

func (s *RelaySink) Name() string { return s.name }

func (s *RelaySink) Submit(ctx context.Context, tx *Transaction) (types.Hash, error) {
	raw, hash, err := s.signer.SignTransaction(ctx, tx)
	if err != nil {
		return types.Hash{}, fmt.Errorf("sign: %w", err)
	}
	envelope := relayEnvelope{
		RawTransaction: fmt.Sprintf("0x%x", raw),
		MaxBlockNumber: tx.TargetBlock,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return types.Hash{}, fmt.Errorf("marshal relay envelope: %w", err)
	}
	sigHeader, err := s.bundle.FlashbotsSignatureHeader(body)
	if err != nil {
		return types.Hash{}, fmt.Errorf("sign relay envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return types.Hash{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Flashbots-Signature", sigHeader)

	resp, err := s.client.Do(req)
	if err != nil {
		return types.Hash{}, fmt.Errorf("post to relay: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.Hash{}, fmt.Errorf("relay %s rejected bundle: status %d", s.name, resp.StatusCode)
	}
	return hash, nil
}

// DirectSubmitter accepts either a signed transaction or an empty-block
// attestation directly, bypassing both mempool and relay.
type DirectSubmitter interface {
	SubmitTransaction(ctx context.Context, raw []byte) (types.Hash, error)
	SubmitEmptyAttestation(ctx context.Context, attestation types.AttestAngstromBlockEmpty, raw []byte) (types.Hash, error)
}

// DirectSink submits straight to a builder/sequencer endpoint, whether the
// payload is a signed bundle transaction or an empty-block attestation.
type DirectSink struct {
	name   string
	signer TxSigner
	direct DirectSubmitter
}

func NewDirectSink(name string, signer TxSigner, direct DirectSubmitter) *DirectSink {
	return &DirectSink{name: name, signer: signer, direct: direct}
}

func (s *DirectSink) Name() string { return s.name }

func (s *DirectSink) Submit(ctx context.Context, tx *Transaction) (types.Hash, error) {
	raw, hash, err := s.signer.SignTransaction(ctx, tx)
	if err != nil {
		return types.Hash{}, fmt.Errorf("sign: %w", err)
	}
	if _, err := s.direct.SubmitTransaction(ctx, raw); err != nil {
		return types.Hash{}, fmt.Errorf("direct submit: %w", err)
	}
	return hash, nil
}

// SubmitEmptyAttestation routes an empty-block attestation straight to the
// direct submitter ("an empty-block attestation signed
// over target_block").
func (s *DirectSink) SubmitEmptyAttestation(ctx context.Context, tx *Transaction, attestation types.AttestAngstromBlockEmpty) (types.Hash, error) {
	return s.direct.SubmitEmptyAttestation(ctx, attestation, tx.Calldata)
}

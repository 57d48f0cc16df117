// Package wire implements the canonical, deterministic encoding used both
// to hash payloads before signing and to serialize strom protocol frames.
// A fixed CBOR core-deterministic mode stands in for the Rust
// implementation's bincode: both produce one canonical byte string per
// logical value, which is all the protocol actually requires.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var encMode = func() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	m, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: building core-deterministic encoder: %v", err))
	}
	return m
}()

var decMode = func() cbor.DecMode {
	m, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: building decoder: %v", err))
	}
	return m
}()

// Marshal encodes v using the canonical CBOR mode: identical logical values
// always produce identical bytes, which both the hash-before-sign path and
// the wire frame path depend on.
func Marshal(v interface{}) ([]byte, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal: %w", err)
	}
	return b, nil
}

// Unmarshal decodes into v.
func Unmarshal(b []byte, v interface{}) error {
	if err := decMode.Unmarshal(b, v); err != nil {
		return fmt.Errorf("wire: unmarshal: %w", err)
	}
	return nil
}

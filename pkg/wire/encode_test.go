package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshalIsCanonicalAcrossRuns(t *testing.T) {
	require := require.New(t)

	v := map[string]int{"b": 2, "a": 1, "c": 3}
	a, err := Marshal(v)
	require.NoError(err)
	b, err := Marshal(v)
	require.NoError(err)
	require.Equal(a, b, "core-deterministic mode must produce identical bytes for the same logical value")
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	require := require.New(t)

	type payload struct {
		A uint64
		B string
	}
	in := payload{A: 99, B: "angstrom"}

	b, err := Marshal(in)
	require.NoError(err)

	var out payload
	require.NoError(Unmarshal(b, &out))
	require.Equal(in, out)
}

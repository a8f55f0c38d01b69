package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	in := []float64{0, 0.25, 0.5, 1}
	data, err := JSON{}.Marshal(in)
	require.NoError(t, err)

	var out []float64
	require.NoError(t, JSON{}.Unmarshal(data, &out))
	require.Equal(t, in, out)
}

func TestJSONRejectsNaN(t *testing.T) {
	t.Parallel()

	_, err := JSON{}.Marshal([]float64{math.NaN()})
	require.Error(t, err)
}

func TestGobCarriesNaN(t *testing.T) {
	t.Parallel()

	in := []float64{math.NaN(), math.Inf(1)}
	data, err := Gob{}.Marshal(in)
	require.NoError(t, err)

	var out []float64
	require.NoError(t, Gob{}.Unmarshal(data, &out))
	require.Len(t, out, 2)
	require.True(t, math.IsNaN(out[0]))
	require.True(t, math.IsInf(out[1], 1))
}

package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	results, err := Run(Config{Count: 64, Rounds: 2})
	require.NoError(t, err)
	require.Len(t, results, 5)

	wantSizes := []int{64, 128, 256, 512, 1024}
	for i, r := range results {
		assert.Equal(t, wantSizes[i], r.Size)
		for _, tm := range []Timing{r.NaivePOD, r.NaiveObj, r.ScopedPOD, r.ScopedObj} {
			assert.GreaterOrEqual(t, tm.AllocNs, 0.0)
			assert.GreaterOrEqual(t, tm.IterNs, 0.0)
			assert.GreaterOrEqual(t, tm.DestroyNs, 0.0)
		}
	}
}

func TestRunInvalidConfig(t *testing.T) {
	_, err := Run(Config{Count: 0, Rounds: 1})
	assert.Error(t, err)
	_, err = Run(Config{Count: 1, Rounds: 0})
	assert.Error(t, err)
}

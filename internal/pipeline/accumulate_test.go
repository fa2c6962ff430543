package pipeline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maid-docs/maid/internal/docs"
)

func TestAccumulatorOrdersByFirstContribution(t *testing.T) {
	acc := newAccumulator()

	var wg sync.WaitGroup
	for u := 3; u >= 0; u-- {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := 0; d < 3; d++ {
				id := docs.MemberID([]string{"a", "b", "c"}[d])
				assert.NoError(t, acc.add("Acme", id, contribution{seq: seq{unit: u, decl: d}, kind: docs.KindType}))
			}
		}()
	}
	wg.Wait()

	entries, err := acc.drain()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, docs.MemberID("a"), entries[0].id)
	assert.Equal(t, docs.MemberID("c"), entries[2].id)
	for _, e := range entries {
		require.Len(t, e.contribs, 4)
		for i, c := range e.contribs {
			assert.Equal(t, i, c.seq.unit)
		}
	}
}

func TestAccumulatorRejectsAfterDrain(t *testing.T) {
	acc := newAccumulator()
	require.NoError(t, acc.add("", "x", contribution{kind: docs.KindType}))

	_, err := acc.drain()
	require.NoError(t, err)

	assert.ErrorIs(t, acc.add("", "y", contribution{}), errDrained)
	_, err = acc.drain()
	assert.ErrorIs(t, err, errDrained)
}

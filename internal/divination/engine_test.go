package divination

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neoluxis/gua4destiny/internal/gua"
)

func TestOneChangeKeepsStalkAccounting(t *testing.T) {
	t.Parallel()
	e := NewEngine(WithRand(testRand(3)), WithMethod(MethodUniform))

	for i := 0; i < 500; i++ {
		counted, next, err := e.OneChange(yongOrigin)
		require.NoError(t, err)
		// One stalk is set aside for man, the rest split between the
		// counted-off remainder and the next working heap.
		require.Equal(t, yongOrigin, counted+next)
		require.Contains(t, validYong[0], next)
	}
}

func TestOneChangeHandlesDegenerateSplit(t *testing.T) {
	t.Parallel()
	d := NewDivider()
	d.Register("fixed", fixedStrategy{[]int{49, 0}})
	e := NewEngine(WithDivider(d), WithMethod("fixed"), WithRand(testRand(1)))

	counted, next, err := e.OneChange(yongOrigin)
	require.NoError(t, err)
	require.Equal(t, yongOrigin, counted+next)
	require.Contains(t, validYong[0], next)
}

func TestCastLineProducesValidValues(t *testing.T) {
	t.Parallel()
	for _, method := range []string{MethodUniform, MethodNormal, MethodExponential, MethodPoisson} {
		t.Run(method, func(t *testing.T) {
			t.Parallel()
			e := NewEngine(WithRand(testRand(99)), WithMethod(method))
			seen := make(map[gua.Line]int)
			for i := 0; i < 300; i++ {
				line, err := e.CastLine()
				require.NoError(t, err)
				require.True(t, line.Valid(), "line %d", line)
				seen[line]++
			}
			// All casting methods must reach more than one outcome.
			require.Greater(t, len(seen), 1)
		})
	}
}

func TestCastHexagramReturnsSixLines(t *testing.T) {
	t.Parallel()
	e := NewEngine(WithRand(testRand(17)))
	lines, err := e.CastHexagram()
	require.NoError(t, err)
	require.Len(t, lines, 6)
	for _, l := range lines {
		require.True(t, l.Valid())
	}

	h, err := gua.New(lines, nil)
	require.NoError(t, err)
	require.GreaterOrEqual(t, h.Index, 1)
	require.LessOrEqual(t, h.Index, 64)
}

func TestCastHexagramIsDeterministicForSeededSource(t *testing.T) {
	t.Parallel()
	first, err := NewEngine(WithRand(testRand(8))).CastHexagram()
	require.NoError(t, err)
	second, err := NewEngine(WithRand(testRand(8))).CastHexagram()
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestFloorDivMod(t *testing.T) {
	t.Parallel()
	q, r := floorDivMod(9, 4)
	require.Equal(t, 2, q)
	require.Equal(t, 1, r)

	q, r = floorDivMod(-1, 4)
	require.Equal(t, -1, q)
	require.Equal(t, 3, r)

	q, r = floorDivMod(8, 4)
	require.Equal(t, 2, q)
	require.Equal(t, 0, r)
}

package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedInRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		s, err := Seed(100)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s, int64(0))
		assert.Less(t, s, int64(100))
	}
}

func TestSeedRejectsTinyBase(t *testing.T) {
	_, err := Seed(1)
	assert.Error(t, err)
}

func TestScalarMaskCancellation(t *testing.T) {
	// Three participants u, v, w each hold s_{x,y} in [0, base).
	base := int64(7)
	seeds := map[[2]string]int64{
		{"u", "v"}: 3, {"v", "u"}: 5,
		{"u", "w"}: 1, {"w", "u"}: 6,
		{"v", "w"}: 2, {"w", "v"}: 4,
	}

	mu := ScalarMask(
		map[string]int64{"v": seeds[[2]string{"u", "v"}], "w": seeds[[2]string{"u", "w"}]},
		map[string]int64{"v": seeds[[2]string{"v", "u"}], "w": seeds[[2]string{"w", "u"}]},
		base,
	)
	mv := ScalarMask(
		map[string]int64{"u": seeds[[2]string{"v", "u"}], "w": seeds[[2]string{"v", "w"}]},
		map[string]int64{"u": seeds[[2]string{"u", "v"}], "w": seeds[[2]string{"w", "v"}]},
		base,
	)
	mw := ScalarMask(
		map[string]int64{"u": seeds[[2]string{"w", "u"}], "v": seeds[[2]string{"w", "v"}]},
		map[string]int64{"u": seeds[[2]string{"u", "w"}], "v": seeds[[2]string{"v", "w"}]},
		base,
	)

	assert.Equal(t, int64(0), mod(mu+mv+mw, base))
}

func TestApplyScalarWraps(t *testing.T) {
	v := []int64{7}
	out := ApplyScalar(v, 8, 10)
	assert.Equal(t, []int64{5}, out)
}

func TestApplyVector(t *testing.T) {
	v := []int64{1, 2, 3}
	m := []int64{6, 5, 4}
	out := ApplyVector(v, m, 7)
	assert.Equal(t, []int64{0, 0, 0}, out)
}

func TestSumReducesModBase(t *testing.T) {
	agg := []int64{11, 13, 15}
	out := Sum(agg, 7)
	assert.Equal(t, []int64{4, 6, 1}, out)
}

func TestVectorMaskCancellation(t *testing.T) {
	base := int64(9)
	uOut := map[string][]int64{"v": {1, 2}}
	uIn := map[string][]int64{"v": {3, 4}}
	vOut := map[string][]int64{"u": {3, 4}}
	vIn := map[string][]int64{"u": {1, 2}}

	mu := VectorMask(uOut, uIn, base, 2)
	mv := VectorMask(vOut, vIn, base, 2)

	for i := range mu {
		assert.Equal(t, int64(0), mod(mu[i]+mv[i], base))
	}
}

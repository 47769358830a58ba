package linearmodel

import (
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-demandcast/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testModel(t *testing.T, model Model, x, y mat.Matrix, intercept float64, coef []float64, tol float64) {
	err := model.Fit(x, y)
	require.Nil(t, err)

	assert.InDelta(t, intercept, model.Intercept(), tol, "intercept")

	c := model.Coef()
	assert.InDeltaSlice(t, coef, c, tol, "coefficients")

	r2, err := model.Score(x, y)
	require.Nil(t, err)
	assert.InDelta(t, 1.0, r2, tol, "score")
}

func generateBenchData(hours, nFeat int) (mat.Matrix, mat.Matrix, error) {
	t := timedataset.GenerateT(hours, time.Hour, time.Now)
	out := make(timedataset.Series, hours)

	period := 86400.0
	out.Add(timedataset.GenerateConstY(hours, 50.0)).
		Add(timedataset.GenerateWaveY(t, 10.0, period, 1.0, 0)).
		Add(timedataset.GenerateWaveY(t, 3.5, period, 3.0, 2.0*60*60)).
		Add(timedataset.GenerateNoise(timedataset.NewSource(timedataset.DefaultSeed), hours, 5.0))

	epoch := make([]float64, len(t))
	for i, tPnt := range t {
		epoch[i] = float64(tPnt.UnixNano()) / 1e9
	}

	data := make([][]float64, hours)
	for i := range hours {
		obs := make([]float64, nFeat*2+1)
		obs[0] = 1.0
		data[i] = obs
	}
	for order := 1; order <= nFeat; order++ {
		omega := 2.0 * math.Pi * float64(order) / period
		for i, tFeat := range epoch {
			rad := omega * tFeat
			data[i][2*order-1] = math.Sin(rad)
			data[i][2*order] = math.Cos(rad)
		}
	}

	x, err := NewDenseFromArray(data)
	if err != nil {
		return nil, nil, err
	}

	y := mat.NewDense(len(out), 1, out)
	return x, y, nil
}

func TestNewDenseFromArray(t *testing.T) {
	testData := map[string]struct {
		x   [][]float64
		err error
	}{
		"valid":      {[][]float64{{1, 2}, {3, 4}, {5, 6}}, nil},
		"mismatched": {[][]float64{{1, 2}, {3}}, ErrColMismatch},
		"empty":      {nil, ErrNoTrainingMatrix},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := NewDenseFromArray(td.x)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			m, n := res.Dims()
			assert.Equal(t, 3, m)
			assert.Equal(t, 2, n)
			assert.Equal(t, 4.0, res.At(1, 1))
		})
	}
}

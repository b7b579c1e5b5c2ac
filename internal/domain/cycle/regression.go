package cycle

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var errSingularFit = errors.New("regression normal equations are singular")

const varianceEpsilon = 1e-12

// labelEncoder maps categorical values to their index in the sorted set of
// distinct training values.
type labelEncoder struct {
	classes []string
	index   map[string]int
}

func fitLabelEncoder(values []string) *labelEncoder {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &labelEncoder{classes: classes, index: index}
}

func (e *labelEncoder) transform(value string) (float64, error) {
	i, ok := e.index[value]
	if !ok {
		return 0, fmt.Errorf("unseen label %q", value)
	}
	return float64(i), nil
}

// linearFit is an ordinary least squares fit with intercept.
type linearFit struct {
	coef      []float64
	intercept float64
}

// fitLinear solves the least squares problem on centered features.
// Zero-variance columns get a zero coefficient.
func fitLinear(x [][]float64, y []float64) (linearFit, error) {
	n := len(x)
	if n == 0 || n != len(y) {
		return linearFit{}, errors.New("regression needs matching non-empty inputs")
	}
	width := len(x[0])

	means := make([]float64, width)
	var yMean float64
	for i, row := range x {
		if len(row) != width {
			return linearFit{}, fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
		for j, v := range row {
			means[j] += v
		}
		yMean += y[i]
	}
	for j := range means {
		means[j] /= float64(n)
	}
	yMean /= float64(n)

	active := make([]int, 0, width)
	for j := 0; j < width; j++ {
		var variance float64
		for _, row := range x {
			d := row[j] - means[j]
			variance += d * d
		}
		if variance > varianceEpsilon {
			active = append(active, j)
		}
	}

	k := len(active)
	gram := make([][]float64, k)
	rhs := make([]float64, k)
	for a := range gram {
		gram[a] = make([]float64, k)
	}
	for i, row := range x {
		dy := y[i] - yMean
		for a, ja := range active {
			da := row[ja] - means[ja]
			rhs[a] += da * dy
			for b, jb := range active {
				gram[a][b] += da * (row[jb] - means[jb])
			}
		}
	}

	solution, err := solveLinearSystem(gram, rhs)
	if err != nil {
		return linearFit{}, err
	}

	coef := make([]float64, width)
	intercept := yMean
	for a, j := range active {
		coef[j] = solution[a]
		intercept -= solution[a] * means[j]
	}
	return linearFit{coef: coef, intercept: intercept}, nil
}

func (f linearFit) predict(features []float64) float64 {
	out := f.intercept
	for j, v := range features {
		out += f.coef[j] * v
	}
	return out
}

// solveLinearSystem runs Gaussian elimination with partial pivoting. The
// inputs are modified in place.
func solveLinearSystem(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-10 {
			return nil, errSingularFit
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			factor := a[r][col] / a[col][col]
			if factor == 0 {
				continue
			}
			for c := col; c < n; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= a[r][c] * x[c]
		}
		x[r] = sum / a[r][r]
	}
	return x, nil
}

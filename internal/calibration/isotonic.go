package calibration

import "sort"

// isotonicCurve is a monotone non-decreasing step function fitted by
// pool-adjacent-violators. X holds block mean inputs, Y block mean targets.
type isotonicCurve struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// Map interpolates linearly between blocks and holds the end values flat
func (c isotonicCurve) Map(p float64) float64 {
	n := len(c.X)
	if n == 0 {
		return p
	}
	if p <= c.X[0] {
		return c.Y[0]
	}
	if p >= c.X[n-1] {
		return c.Y[n-1]
	}
	i := sort.SearchFloat64s(c.X, p)
	x0, x1 := c.X[i-1], c.X[i]
	y0, y1 := c.Y[i-1], c.Y[i]
	if x1 == x0 {
		return y1
	}
	return y0 + (p-x0)/(x1-x0)*(y1-y0)
}

type block struct {
	sumX, sumY, weight float64
}

func (b block) meanY() float64 { return b.sumY / b.weight }

// fitIsotonic sorts the pairs by x, groups equal inputs and pools
// adjacent blocks until the targets are non-decreasing
func fitIsotonic(x, y []float64) isotonicCurve {
	if len(x) == 0 {
		return isotonicCurve{}
	}
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return x[idx[i]] < x[idx[j]] })

	stack := make([]block, 0, len(x))
	for k := 0; k < len(idx); {
		b := block{}
		v := x[idx[k]]
		for k < len(idx) && x[idx[k]] == v {
			b.sumX += x[idx[k]]
			b.sumY += y[idx[k]]
			b.weight++
			k++
		}
		stack = append(stack, b)

		for len(stack) > 1 && stack[len(stack)-2].meanY() > stack[len(stack)-1].meanY() {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			prev := &stack[len(stack)-1]
			prev.sumX += top.sumX
			prev.sumY += top.sumY
			prev.weight += top.weight
		}
	}

	curve := isotonicCurve{X: make([]float64, len(stack)), Y: make([]float64, len(stack))}
	for i, b := range stack {
		curve.X[i] = b.sumX / b.weight
		curve.Y[i] = b.meanY()
	}
	return curve
}

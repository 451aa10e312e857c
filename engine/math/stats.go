package math

import (
	"gonum.org/v1/gonum/floats"
)

// The functions in this file expect len(points) == len(weights) and
// non-negative weights. rig.PointSet.Validate enforces both before any
// fitting runs.

// WeightedMean returns Σ(p·w)/Σw. When the total weight is zero it falls
// back to the unweighted arithmetic mean. An empty input yields the zero
// vector.
func WeightedMean(points []Vec3, weights []float64) Vec3 {
	if len(points) == 0 {
		return NewVec3Zero()
	}
	total := floats.Sum(weights)
	if total == 0 {
		return Mean(points)
	}
	sum := NewVec3Zero()
	for i, p := range points {
		sum = sum.Add(p.MulScalar(weights[i] / total))
	}
	return sum
}

// Mean returns the unweighted arithmetic mean of points.
func Mean(points []Vec3) Vec3 {
	if len(points) == 0 {
		return NewVec3Zero()
	}
	sum := NewVec3Zero()
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.DivScalar(float64(len(points)))
}

// WeightedCovariance returns Σ w·(p-mean)(p-mean)ᵗ / Σw. With equal weights
// this is the population covariance of the points about mean.
//
// When the total weight is zero the unbiased (n-1) covariance of the points
// is returned instead, and a zero matrix for fewer than two points.
func WeightedCovariance(points []Vec3, weights []float64, mean Vec3) Mat3 {
	total := floats.Sum(weights)
	if total == 0 {
		return covariance(points, mean)
	}
	s := NewMat3Zero()
	for i, p := range points {
		s = s.Add(NewMat3Outer(p.Sub(mean), weights[i]))
	}
	return s.MulScalar(1.0 / total)
}

func covariance(points []Vec3, mean Vec3) Mat3 {
	n := len(points)
	if n < 2 {
		return NewMat3Zero()
	}
	s := NewMat3Zero()
	for _, p := range points {
		s = s.Add(NewMat3Outer(p.Sub(mean), 1))
	}
	return s.MulScalar(1.0 / float64(n-1))
}

// WeightedQuantile sorts values ascending, accumulates their weights and
// returns the first value whose cumulative weight reaches q·Σw. With a zero
// total weight it returns the value at ordinal ⌊q·n⌋ of the sorted values.
// q is expected in [0, 1]; an empty input yields 0.
//
// Trailing zero-weight values carry no mass, so q=1 returns the largest
// value with positive weight rather than the largest value overall.
func WeightedQuantile(values, weights []float64, q float64) float64 {
	n := len(values)
	if n == 0 {
		return 0.0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	order := make([]int, n)
	floats.Argsort(sorted, order)

	w := make([]float64, n)
	for i, idx := range order {
		w[i] = weights[idx]
	}
	cw := floats.CumSum(make([]float64, n), w)

	total := cw[n-1]
	if total == 0 {
		return sorted[Clamp(int(q*float64(n)), 0, n-1)]
	}

	target := q * total
	idx := n - 1
	for i, c := range cw {
		if c >= target {
			idx = i
			break
		}
	}
	return sorted[idx]
}

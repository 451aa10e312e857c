package math

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var ErrEigenDecomposition = errors.New("symmetric eigen decomposition did not converge")

// EigenPair is one eigenvalue with its unit eigenvector.
type EigenPair struct {
	Value  float64
	Vector Vec3
}

// EigenSym3 decomposes a symmetric 3x3 matrix. Only the upper triangle of s
// is read. Pairs come back sorted by eigenvalue, largest first; the vectors
// are unit length and mutually orthogonal.
func EigenSym3(s Mat3) ([3]EigenPair, error) {
	var pairs [3]EigenPair

	sym := mat.NewSymDense(3, []float64{
		s.Data[0], s.Data[1], s.Data[2],
		s.Data[1], s.Data[4], s.Data[5],
		s.Data[2], s.Data[5], s.Data[8],
	})

	var es mat.EigenSym
	if ok := es.Factorize(sym, true); !ok {
		return pairs, ErrEigenDecomposition
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	order := []int{0, 1, 2}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})

	for i, col := range order {
		v := Vec3{vectors.At(0, col), vectors.At(1, col), vectors.At(2, col)}
		pairs[i] = EigenPair{
			Value:  values[col],
			Vector: v.DivScalar(v.Length() + K_EPSILON),
		}
	}
	return pairs, nil
}

// Package pairwise loads and validates the pairwise comparison matrices
// that rank curtailment criteria for the load-control agent.
//
// A criteria file holds the upper triangle of a reciprocal matrix under the
// "curtail" key. Consistency is measured with Saaty's consistency ratio
// CR = ((lambda_max - n) / (n - 1)) / RI(n), where lambda_max is the
// principal eigenvalue of the full matrix. A matrix is accepted when
// CR <= Threshold.
package pairwise

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/tailscale/hujson"
	"gonum.org/v1/gonum/mat"
)

// Threshold is the largest accepted consistency ratio.
const Threshold = 0.2

var (
	// ErrInconsistent is returned when the consistency ratio exceeds Threshold.
	ErrInconsistent = errors.New("pairwise criteria are inconsistent")
	// ErrIncomplete is returned when a criteria pair has no comparison.
	ErrIncomplete = errors.New("pairwise criteria are incomplete")
	// ErrMalformed is returned for files without a usable "curtail" table.
	ErrMalformed = errors.New("malformed pairwise criteria")
)

// randomIndex is Saaty's random consistency index for n = 1..10.
var randomIndex = []float64{0, 0, 0.58, 0.90, 1.12, 1.24, 1.32, 1.41, 1.45, 1.49}

// Matrix is a full reciprocal comparison matrix over sorted labels.
type Matrix struct {
	Labels []string
	Values [][]float64
}

// Parse decodes a criteria file (comments allowed) and builds its matrix.
func Parse(raw []byte) (*Matrix, error) {
	std, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var doc map[string]map[string]map[string]float64
	if err := json.Unmarshal(std, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	curtail, ok := doc["curtail"]
	if !ok || len(curtail) == 0 {
		return nil, fmt.Errorf("%w: missing \"curtail\" table", ErrMalformed)
	}
	return Extract(curtail)
}

// Extract builds the full matrix from an upper or full triangle. Explicit
// entries win over reciprocals.
func Extract(criteria map[string]map[string]float64) (*Matrix, error) {
	set := make(map[string]struct{})
	for row, cols := range criteria {
		set[row] = struct{}{}
		for col := range cols {
			set[col] = struct{}{}
		}
	}
	labels := make([]string, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	idx := make(map[string]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}

	n := len(labels)
	vals := make([][]float64, n)
	explicit := make([][]bool, n)
	for i := range vals {
		vals[i] = make([]float64, n)
		explicit[i] = make([]bool, n)
		vals[i][i] = 1
		explicit[i][i] = true
	}

	for row, cols := range criteria {
		for col, v := range cols {
			if v <= 0 {
				return nil, fmt.Errorf("%w: %s/%s must be positive, got %v", ErrMalformed, row, col, v)
			}
			i, j := idx[row], idx[col]
			vals[i][j] = v
			explicit[i][j] = true
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if explicit[i][j] {
				continue
			}
			if !explicit[j][i] {
				return nil, fmt.Errorf("%w: no comparison between %s and %s", ErrIncomplete, labels[i], labels[j])
			}
			vals[i][j] = 1 / vals[j][i]
		}
	}
	return &Matrix{Labels: labels, Values: vals}, nil
}

// ColumnSums returns the column sums of the matrix.
func (m *Matrix) ColumnSums() []float64 {
	sums := make([]float64, len(m.Labels))
	for _, row := range m.Values {
		for j, v := range row {
			sums[j] += v
		}
	}
	return sums
}

// ConsistencyRatio computes CR. Matrices with two or fewer criteria are
// always consistent.
func (m *Matrix) ConsistencyRatio() (float64, error) {
	n := len(m.Labels)
	if n <= 2 {
		return 0, nil
	}

	data := make([]float64, 0, n*n)
	for _, row := range m.Values {
		data = append(data, row...)
	}
	var eig mat.Eigen
	if ok := eig.Factorize(mat.NewDense(n, n, data), mat.EigenNone); !ok {
		return 0, fmt.Errorf("eigen decomposition of %d x %d criteria matrix failed", n, n)
	}

	lambda := math.Inf(-1)
	for _, v := range eig.Values(nil) {
		if real(v) > lambda {
			lambda = real(v)
		}
	}

	ri := randomIndex[len(randomIndex)-1]
	if n <= len(randomIndex) {
		ri = randomIndex[n-1]
	}
	ci := (lambda - float64(n)) / float64(n-1)
	return math.Max(0, ci/ri), nil
}

// Validate returns the consistency ratio and ErrInconsistent if it is above
// Threshold.
func (m *Matrix) Validate() (float64, error) {
	cr, err := m.ConsistencyRatio()
	if err != nil {
		return 0, err
	}
	if cr > Threshold {
		return cr, fmt.Errorf("%w: consistency ratio %.3f exceeds %.2f (column sums %v)", ErrInconsistent, cr, Threshold, m.ColumnSums())
	}
	return cr, nil
}

// Package matrix implements matrix algebra over a field.Field: Cauchy
// construction, submatrices, determinants and cofactors by Laplace
// expansion, transpose, scale, multiply, inversion, and the binary
// expansion that turns a matrix over GF(2^n) into an equivalent matrix
// over GF(2).
package matrix

import (
	"errors"
	"fmt"
	"strings"

	"github.com/edyu/odin-erasure/field"
)

// ErrInvalidDimensions is returned when a requested matrix has a
// non-positive row or column count.
var ErrInvalidDimensions = errors.New("matrix: dimensions must be positive")

// ErrNotSquare is returned by operations that require a square matrix.
var ErrNotSquare = errors.New("matrix: operation requires a square matrix")

// ErrDimensionMismatch is returned when two operands' shapes are
// incompatible for the requested operation.
var ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

// ErrCauchyOrder is returned by NewCauchy when the field is too small to
// hold rows+cols distinct evaluation points.
var ErrCauchyOrder = errors.New("matrix: field order too small for a Cauchy matrix of this shape")

// SingularError reports that a matrix has no inverse.
type SingularError struct{}

func (e *SingularError) Error() string { return "matrix: matrix is singular" }

// Matrix is an R x C matrix over a fixed field.Field.
type Matrix struct {
	Field      *field.Field
	Rows, Cols int
	data       [][]int
}

// New allocates a Rows x Cols matrix over f, zero-initialized.
func New(rows, cols int, f *field.Field) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, rows, cols)
	}
	data := make([][]int, rows)
	for r := range data {
		data[r] = make([]int, cols)
	}
	return &Matrix{Field: f, Rows: rows, Cols: cols, data: data}, nil
}

// Get returns the element at (r, c).
func (m *Matrix) Get(r, c int) int { return m.data[r][c] }

// Set stores v at (r, c). v must be a valid element of m.Field.
func (m *Matrix) Set(r, c, v int) error {
	if err := m.Field.Validate(v); err != nil {
		return err
	}
	m.data[r][c] = v
	return nil
}

// NewCauchy builds a rows x cols Cauchy matrix over f: entry (r, c) is
// 1/(x_r - y_c) for two disjoint sequences of evaluation points drawn from
// f, x_r = r+cols and y_c = c. Every square submatrix of a Cauchy matrix
// is invertible, which is what makes it usable as an MDS encoder: the construction never needs repair after the fact, only a
// field large enough to supply rows+cols distinct points.
func NewCauchy(rows, cols int, f *field.Field) (*Matrix, error) {
	if rows+cols > f.Order() {
		return nil, fmt.Errorf("%w: need %d points, field order is %d", ErrCauchyOrder, rows+cols, f.Order())
	}
	m, err := New(rows, cols, f)
	if err != nil {
		return nil, err
	}
	for r := 0; r < rows; r++ {
		x := f.Sub(r+cols, 0)
		for c := 0; c < cols; c++ {
			denom := f.Sub(x, c)
			v, err := f.Invert(denom)
			if err != nil {
				return nil, fmt.Errorf("matrix: cauchy entry (%d,%d): %w", r, c, err)
			}
			m.data[r][c] = v
		}
	}
	return m, nil
}

// SubMatrix returns a new matrix obtained by deleting the named rows and
// columns, preserving the relative order of what remains. excludedRows
// and excludedCols may be nil or empty.
func (m *Matrix) SubMatrix(excludedRows, excludedCols []int) (*Matrix, error) {
	dropRow := indexSet(excludedRows)
	dropCol := indexSet(excludedCols)
	var rows, cols []int
	for r := 0; r < m.Rows; r++ {
		if !dropRow[r] {
			rows = append(rows, r)
		}
	}
	for c := 0; c < m.Cols; c++ {
		if !dropCol[c] {
			cols = append(cols, c)
		}
	}
	out, err := New(len(rows), len(cols), m.Field)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		for j, c := range cols {
			out.data[i][j] = m.data[r][c]
		}
	}
	return out, nil
}

func indexSet(indices []int) map[int]bool {
	set := make(map[int]bool, len(indices))
	for _, i := range indices {
		set[i] = true
	}
	return set
}

// Determinant computes the determinant by Laplace expansion along row 0.
// Characteristic 2 makes the alternating sign in the textbook formula a
// no-op, since negation is the identity; the expansion is plain XOR of the
// field-multiplied minors.
func (m *Matrix) Determinant() (int, error) {
	if m.Rows != m.Cols {
		return 0, ErrNotSquare
	}
	if m.Rows == 1 {
		return m.data[0][0], nil
	}
	if m.Rows == 2 {
		f := m.Field
		return f.Sub(f.Multiply(m.data[0][0], m.data[1][1]), f.Multiply(m.data[0][1], m.data[1][0])), nil
	}
	det := 0
	for c := 0; c < m.Cols; c++ {
		minor, err := m.SubMatrix([]int{0}, []int{c})
		if err != nil {
			return 0, err
		}
		minorDet, err := minor.Determinant()
		if err != nil {
			return 0, err
		}
		det = m.Field.Add(det, m.Field.Multiply(m.data[0][c], minorDet))
	}
	return det, nil
}

// Cofactors returns the matrix of cofactors: entry (r, c) is the
// determinant of the minor obtained by deleting row r and column c. As
// with Determinant, the characteristic-2 sign factor is always 1.
func (m *Matrix) Cofactors() (*Matrix, error) {
	if m.Rows != m.Cols {
		return nil, ErrNotSquare
	}
	out, err := New(m.Rows, m.Cols, m.Field)
	if err != nil {
		return nil, err
	}
	if m.Rows == 1 {
		// The only minor of a 1x1 matrix is empty, with determinant 1.
		out.data[0][0] = 1
		return out, nil
	}
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			minor, err := m.SubMatrix([]int{r}, []int{c})
			if err != nil {
				return nil, err
			}
			d, err := minor.Determinant()
			if err != nil {
				return nil, err
			}
			out.data[r][c] = d
		}
	}
	return out, nil
}

// Transpose returns the transpose of m. Used internally only on the
// square cofactor matrix during Invert.
func (m *Matrix) Transpose() (*Matrix, error) {
	if m.Rows != m.Cols {
		return nil, ErrNotSquare
	}
	out, err := New(m.Cols, m.Rows, m.Field)
	if err != nil {
		return nil, err
	}
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			out.data[c][r] = m.data[r][c]
		}
	}
	return out, nil
}

// Scale multiplies every element by factor. Unlike Transpose, Scale has
// no mathematical dependency on squareness and accepts any shape.
func (m *Matrix) Scale(factor int) (*Matrix, error) {
	out, err := New(m.Rows, m.Cols, m.Field)
	if err != nil {
		return nil, err
	}
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			out.data[r][c] = m.Field.Multiply(m.data[r][c], factor)
		}
	}
	return out, nil
}

// Multiply returns m * other. m.Cols must equal other.Rows.
func (m *Matrix) Multiply(other *Matrix) (*Matrix, error) {
	if m.Cols != other.Rows {
		return nil, fmt.Errorf("%w: %dx%d * %dx%d", ErrDimensionMismatch, m.Rows, m.Cols, other.Rows, other.Cols)
	}
	out, err := New(m.Rows, other.Cols, m.Field)
	if err != nil {
		return nil, err
	}
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < other.Cols; c++ {
			acc := 0
			for k := 0; k < m.Cols; k++ {
				acc = m.Field.Add(acc, m.Field.Multiply(m.data[r][k], other.data[k][c]))
			}
			out.data[r][c] = acc
		}
	}
	return out, nil
}

// Invert returns the inverse of a square matrix: transpose(cofactors(m))
// scaled by 1/det(m). A zero determinant yields a *SingularError.
func (m *Matrix) Invert() (*Matrix, error) {
	if m.Rows != m.Cols {
		return nil, ErrNotSquare
	}
	det, err := m.Determinant()
	if err != nil {
		return nil, err
	}
	if det == 0 {
		return nil, &SingularError{}
	}
	invDet, err := m.Field.Invert(det)
	if err != nil {
		return nil, err
	}
	cof, err := m.Cofactors()
	if err != nil {
		return nil, err
	}
	adj, err := cof.Transpose()
	if err != nil {
		return nil, err
	}
	return adj.Scale(invDet)
}

// ToBinary expands m into the (Rows*n) x (Cols*n) matrix over GF(2) whose
// action on a bit vector reproduces m's action on the corresponding
// vector over GF(2^n), where n is m.Field's degree. Every n x n block is
// the binary expansion of the corresponding scalar, per field.MatrixOf.
func (m *Matrix) ToBinary() (*Matrix, error) {
	gf2, err := field.New(1)
	if err != nil {
		return nil, err
	}
	n := m.Field.Degree()
	out, err := New(m.Rows*n, m.Cols*n, gf2)
	if err != nil {
		return nil, err
	}
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			block := m.Field.MatrixOf(m.data[r][c])
			for br := 0; br < n; br++ {
				for bc := 0; bc < n; bc++ {
					out.data[r*n+br][c*n+bc] = block[br][bc]
				}
			}
		}
	}
	return out, nil
}

// Equal reports whether m and other have the same shape and entries.
func (m *Matrix) Equal(other *Matrix) bool {
	if m.Rows != other.Rows || m.Cols != other.Cols {
		return false
	}
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			if m.data[r][c] != other.data[r][c] {
				return false
			}
		}
	}
	return true
}

// String renders m as a row-per-line grid of its elements, for test
// failure output and debugging.
func (m *Matrix) String() string {
	var b strings.Builder
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d", m.data[r][c])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

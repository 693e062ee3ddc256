package algorithms

import "github.com/born-ml/adtape/internal/stream"

// Dense is a row-major matrix.
type Dense[T any] struct {
	rows, cols int
	data       []T
}

// NewDense allocates a zero rows×cols matrix.
func NewDense[T any](rows, cols int) *Dense[T] {
	return &Dense[T]{rows: rows, cols: cols, data: make([]T, rows*cols)}
}

func (d *Dense[T]) Rows() int { return d.rows }
func (d *Dense[T]) Cols() int { return d.cols }

func (d *Dense[T]) At(i, j int) T {
	return d.data[d.offset(i, j)]
}

func (d *Dense[T]) Set(i, j int, v T) {
	d.data[d.offset(i, j)] = v
}

// Row returns row i. The slice aliases the matrix.
func (d *Dense[T]) Row(i int) []T {
	return d.data[i*d.cols : (i+1)*d.cols]
}

func (d *Dense[T]) offset(i, j int) int {
	if i < 0 || i >= d.rows || j < 0 || j >= d.cols {
		panic(stream.Violation("index (%d, %d) outside a %d×%d matrix", i, j, d.rows, d.cols))
	}
	return i*d.cols + j
}

// Dense3 is a tensor of one matrix per output: entry (i, j, k) is the second
// derivative of output i with respect to inputs j and k.
type Dense3[T any] struct {
	outputs, inputs int
	data            []T
}

// NewDense3 allocates a zero outputs×inputs×inputs tensor.
func NewDense3[T any](outputs, inputs int) *Dense3[T] {
	return &Dense3[T]{outputs: outputs, inputs: inputs, data: make([]T, outputs*inputs*inputs)}
}

func (d *Dense3[T]) Outputs() int { return d.outputs }
func (d *Dense3[T]) Inputs() int  { return d.inputs }

func (d *Dense3[T]) At(i, j, k int) T {
	return d.data[d.offset(i, j, k)]
}

func (d *Dense3[T]) Set(i, j, k int, v T) {
	d.data[d.offset(i, j, k)] = v
}

// Matrix returns the Hessian of output i. The slice aliases the tensor.
func (d *Dense3[T]) Matrix(i int) []T {
	n := d.inputs * d.inputs
	return d.data[i*n : (i+1)*n]
}

func (d *Dense3[T]) offset(i, j, k int) int {
	if i < 0 || i >= d.outputs || j < 0 || j >= d.inputs || k < 0 || k >= d.inputs {
		panic(stream.Violation("index (%d, %d, %d) outside a %d×%d×%d tensor", i, j, k, d.outputs, d.inputs, d.inputs))
	}
	return (i*d.inputs+j)*d.inputs + k
}

// Discard is a Matrix that drops every entry.
type Discard[T any] struct{}

func (Discard[T]) Set(int, int, T) {}

// Discard3 is a Tensor that drops every entry.
type Discard3[T any] struct{}

func (Discard3[T]) Set(int, int, int, T) {}

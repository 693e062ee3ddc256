// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package algorithms computes Jacobians and Hessians from tape sweeps.
package algorithms

import (
	"github.com/born-ml/adtape/internal/algorithms"
	"github.com/born-ml/adtape/internal/index"
	"github.com/born-ml/adtape/internal/numeric"
	"github.com/born-ml/adtape/internal/stream"
	"github.com/born-ml/adtape/internal/tape"
)

// Evaluation is a sweep direction.
type Evaluation = algorithms.Evaluation

// Sweep directions.
const (
	Forward = algorithms.Forward
	Reverse = algorithms.Reverse
)

// Containers and sinks for results.
type (
	Dense[T any]    = algorithms.Dense[T]
	Dense3[T any]   = algorithms.Dense3[T]
	Discard[T any]  = algorithms.Discard[T]
	Discard3[T any] = algorithms.Discard3[T]
	Matrix[T any]   = algorithms.Matrix[T]
	Tensor[T any]   = algorithms.Tensor[T]
)

// Tape is what ComputeJacobian needs from a tape.
type Tape[T any] = algorithms.Tape[T]

// PrimalTape is a tape that can restore and re-evaluate primal values.
type PrimalTape = algorithms.PrimalTape

// Function records outputs from inputs for ComputeHessian.
type Function = algorithms.Function

// Choose returns the direction that needs fewer sweeps.
func Choose(inputs, outputs int) Evaluation {
	return algorithms.Choose(inputs, outputs)
}

// NewDense allocates a zero rows×cols matrix.
func NewDense[T any](rows, cols int) *Dense[T] {
	return algorithms.NewDense[T](rows, cols)
}

// NewDense3 allocates a zero outputs×inputs×inputs tensor.
func NewDense3[T any](outputs, inputs int) *Dense3[T] {
	return algorithms.NewDense3[T](outputs, inputs)
}

// Identifiers returns the identifiers of vars.
func Identifiers[T any](vars []tape.Active[T]) []index.Identifier {
	return algorithms.Identifiers(vars)
}

// ComputeJacobian fills jac(i, j) with the derivative of output i with
// respect to input j over the tape range [start, end].
func ComputeJacobian[T numeric.Real[T]](t Tape[T], start, end stream.Position, inputs, outputs []index.Identifier, jac Matrix[T]) {
	algorithms.ComputeJacobian[T](t, start, end, inputs, outputs, jac)
}

// ComputeHessian records fn once per input and fills hes and, when it is not
// nil, jac.
func ComputeHessian(t *tape.Tape[numeric.Dual], fn Function, inputs, outputs []tape.Active[numeric.Dual], hes Tensor[float64], jac Matrix[float64]) {
	algorithms.ComputeHessian(t, fn, inputs, outputs, hes, jac)
}

// ComputeHessianPrimalValueTape fills hes and, when it is not nil, jac from
// a tape that can restore its primal values.
func ComputeHessianPrimalValueTape(t PrimalTape, start, end stream.Position, inputs, outputs []index.Identifier, hes Tensor[float64], jac Matrix[float64]) error {
	return algorithms.ComputeHessianPrimalValueTape(t, start, end, inputs, outputs, hes, jac)
}

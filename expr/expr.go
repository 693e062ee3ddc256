// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package expr builds statement right-hand sides for a tape.
//
// Example:
//
//	var f expr.Ops[autodiff.Float]
//	t.Store(&y, f.Add(f.Mul(&a, &b), f.Exp(&a)))
package expr

import (
	"github.com/born-ml/adtape/internal/expr"
	"github.com/born-ml/adtape/internal/numeric"
)

// Expression is the right-hand side of a statement.
type Expression[T any] = expr.Expression[T]

// Ops builds expressions over T. The zero value is ready to use.
type Ops[T numeric.Number[T]] = expr.Ops[T]

// Package config reads tape settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"

	"github.com/born-ml/adtape/internal/events"
	"github.com/born-ml/adtape/internal/index"
	"github.com/born-ml/adtape/internal/tape"
)

// Prefix is prepended to every variable name.
const Prefix = "ADTAPE_"

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrInvalid is wrapped by every Validate error.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the tape options and the ambient settings of a process.
type Config struct {
	ChunkSize   int    `env:"CHUNK_SIZE"    envDefault:"65536"`
	IndexPolicy string `env:"INDEX_POLICY"  envDefault:"linear"`
	VectorWidth int    `env:"VECTOR_WIDTH"  envDefault:"1"`

	CheckZeroIndex                   bool `env:"CHECK_ZERO_INDEX"                   envDefault:"true"`
	IgnoreInvalidJacobians           bool `env:"IGNORE_INVALID_JACOBIANS"           envDefault:"true"`
	CheckJacobianIsZero              bool `env:"CHECK_JACOBIAN_IS_ZERO"             envDefault:"true"`
	SkipZeroAdjointEvaluation        bool `env:"SKIP_ZERO_ADJOINT_EVALUATION"       envDefault:"true"`
	RemoveDuplicateJacobianArguments bool `env:"REMOVE_DUPLICATE_JACOBIAN_ARGUMENTS" envDefault:"false"`
	CopyOptimization                 bool `env:"COPY_OPTIMIZATION"                  envDefault:"true"`
	ReversalZeroesAdjoints           bool `env:"REVERSAL_ZEROES_ADJOINTS"           envDefault:"false"`
	SortIndicesOnReset               bool `env:"SORT_INDICES_ON_RESET"              envDefault:"true"`

	HighLevelEvents bool `env:"HIGH_LEVEL_EVENTS" envDefault:"true"`
	LowLevelEvents  bool `env:"LOW_LEVEL_EVENTS"  envDefault:"false"`

	LogLevel  slog.Level `env:"LOG_LEVEL"  envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text"`
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	o := tape.DefaultOptions()
	return Config{
		ChunkSize:                        o.ChunkSize,
		IndexPolicy:                      string(o.Policy),
		VectorWidth:                      o.Width,
		CheckZeroIndex:                   o.CheckZeroIndex,
		IgnoreInvalidJacobians:           o.IgnoreInvalidJacobians,
		CheckJacobianIsZero:              o.CheckJacobianIsZero,
		SkipZeroAdjointEvaluation:        o.SkipZeroAdjointEvaluation,
		RemoveDuplicateJacobianArguments: o.RemoveDuplicateJacobianArguments,
		CopyOptimization:                 o.CopyOptimization,
		ReversalZeroesAdjoints:           o.ReversalZeroesAdjoints,
		SortIndicesOnReset:               o.SortIndicesOnReset,
		HighLevelEvents:                  true,
		LogLevel:                         slog.LevelInfo,
		LogFormat:                        FormatText,
	}
}

// LoadFromEnv parses the ADTAPE_ variables over the defaults and validates
// the result.
func LoadFromEnv() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the ranges and enumerations of c.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", ErrInvalid, c.ChunkSize)
	}
	if c.VectorWidth <= 0 {
		return fmt.Errorf("%w: vector width %d must be positive", ErrInvalid, c.VectorWidth)
	}
	switch index.Policy(c.IndexPolicy) {
	case index.PolicyLinear, index.PolicyReuse:
	default:
		return fmt.Errorf("%w: index policy %q, want %q or %q", ErrInvalid, c.IndexPolicy, index.PolicyLinear, index.PolicyReuse)
	}
	switch c.LogFormat {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: log format %q, want %q or %q", ErrInvalid, c.LogFormat, FormatText, FormatJSON)
	}
	return nil
}

// Registry returns an event registry with the configured gates.
func (c Config) Registry() *events.Registry {
	r := events.NewRegistry()
	r.SetGates(c.HighLevelEvents, c.LowLevelEvents)
	return r
}

// TapeOptions converts c to tape options. reg may be nil.
func (c Config) TapeOptions(reg *events.Registry) tape.Options {
	return tape.Options{
		ChunkSize:                        c.ChunkSize,
		Policy:                           index.Policy(c.IndexPolicy),
		Width:                            c.VectorWidth,
		CheckZeroIndex:                   c.CheckZeroIndex,
		IgnoreInvalidJacobians:           c.IgnoreInvalidJacobians,
		CheckJacobianIsZero:              c.CheckJacobianIsZero,
		SkipZeroAdjointEvaluation:        c.SkipZeroAdjointEvaluation,
		RemoveDuplicateJacobianArguments: c.RemoveDuplicateJacobianArguments,
		CopyOptimization:                 c.CopyOptimization,
		ReversalZeroesAdjoints:           c.ReversalZeroesAdjoints,
		SortIndicesOnReset:               c.SortIndicesOnReset,
		Events:                           reg,
	}
}

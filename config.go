// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sassoftware/viya-pdf-doc/logger"
)

type ParsingMode string

const (
	Strict     ParsingMode = "strict"
	BestEffort ParsingMode = "best-effort"
)

// FallbackMode controls when the index is rebuilt by scanning the file body.
type FallbackMode string

const (
	// FallbackAuto rebuilds the index only when the startxref chain is unusable.
	FallbackAuto FallbackMode = "auto"
	// FallbackAlways appends the rebuilt index after the startxref chain.
	FallbackAlways FallbackMode = "always"
	FallbackNever  FallbackMode = "never"
)

type Config struct {
	MaxConcurrentDocs int           `validate:"min=1,max=64"`
	WorkerTimeout     time.Duration `validate:"required"`
	ParsingMode       ParsingMode   `validate:"oneof=strict best-effort"`
	Fallback          FallbackMode  `validate:"oneof=auto always never"`
	MaxRetries        int           `validate:"min=0,max=3"`
	// Caching keeps resolved objects and decoded object streams for the document's lifetime.
	Caching bool
	// CycleGuard reports reference loops as ErrCycle instead of following them.
	CycleGuard bool
	Password   string
	// Passwords are tried in order after Password is rejected.
	Passwords []string `validate:"dive,max=127"`
	DebugOn   bool
	Logger    logger.LogFunc
}

func NewDefaultConfig() *Config {
	return &Config{
		MaxConcurrentDocs: 5,
		WorkerTimeout:     5 * time.Second,
		ParsingMode:       BestEffort,
		Fallback:          FallbackAuto,
		MaxRetries:        3,
		Caching:           true,
		CycleGuard:        true,
		DebugOn:           false,
	}
}

func (cfg *Config) Validate() error {
	logger.Debug("Validating Config Object")
	validate := validator.New()
	return validate.Struct(cfg)
}

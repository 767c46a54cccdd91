// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"log/slog"

	"github.com/pdiddy/kernel-press/pkg/types"
)

// Open builds the provider selected by cfg and wraps it in a Guard sized by
// cfg. The returned oracle is meant to be shared by the whole process.
func Open(cfg types.OracleConfig, log *slog.Logger) (*Guard, error) {
	cfg = cfg.WithDefaults()

	var inner Oracle
	switch cfg.Provider {
	case "anthropic":
		c, err := NewClaude(cfg)
		if err != nil {
			return nil, err
		}
		inner = c
	default:
		return nil, types.NewInputError(types.ErrCodeInvalidOption, "unknown oracle provider %q", cfg.Provider)
	}

	return NewGuard(inner, GuardConfig{
		MaxInFlight: cfg.MaxInFlight,
		Timeout:     cfg.Timeout,
		MaxRetries:  cfg.MaxRetries,
		Logger:      log,
	}), nil
}

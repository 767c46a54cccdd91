// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package oracle defines the narrow interface to the judgment-producing
// collaborator: ask with a role, a prompt and a declared output schema, get
// schema-shaped JSON back. Providers implement Oracle; callers use the
// generic Ask to decode into their own output type.
package oracle

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pdiddy/kernel-press/pkg/types"
)

// Request is one oracle call.
type Request struct {
	// Op names the call site (extract, cluster, verify, restore, press).
	Op string

	// Role is the role context, sent as the system prompt.
	Role string

	// Prompt is the rendered user prompt.
	Prompt string

	// Schema declares the output shape.
	Schema Schema

	// Payload is the structured form of the prompt inputs. Providers may
	// ignore it; scripted oracles in tests read it instead of the prompt.
	Payload any
}

// Metrics describes the cost of one oracle call.
type Metrics struct {
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// Usage converts m into an OracleUsage counting one call.
func (m Metrics) Usage() types.OracleUsage {
	return types.OracleUsage{
		Calls:        1,
		InputTokens:  m.InputTokens,
		OutputTokens: m.OutputTokens,
		Duration:     m.Duration,
	}
}

// Response carries the raw JSON output of one call.
type Response struct {
	Output  json.RawMessage
	Metrics Metrics
}

// Oracle is implemented by every provider. Identity is an opaque string that
// distinguishes providers (and models) in cache keys.
type Oracle interface {
	Identity() string
	Ask(ctx context.Context, req Request) (Response, error)
}

// Ask calls o, validates the output against req.Schema and decodes it into T.
// Validation and decode failures are reported as malformed OracleErrors.
func Ask[T any](ctx context.Context, o Oracle, req Request) (T, Metrics, error) {
	var out T
	resp, err := o.Ask(ctx, req)
	if err != nil {
		return out, resp.Metrics, err
	}
	if err := req.Schema.Validate(resp.Output); err != nil {
		return out, resp.Metrics, &types.OracleError{Kind: types.OracleMalformed, Op: req.Op, Err: err}
	}
	if err := json.Unmarshal(resp.Output, &out); err != nil {
		return out, resp.Metrics, &types.OracleError{Kind: types.OracleMalformed, Op: req.Op, Err: err}
	}
	return out, resp.Metrics, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package restore rewrites a compressed text so that lost kernels reappear
// inside its prose.
package restore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/pdiddy/kernel-press/internal/cache"
	"github.com/pdiddy/kernel-press/internal/oracle"
	"github.com/pdiddy/kernel-press/pkg/types"
)

const opRestore = "restore"

const roleContext = `You are a precise technical editor. You revise compressed text so that missing ideas are present again while the text stays as short as possible.`

var restorePromptTmpl = template.Must(template.New("restore").Parse(`The compressed text below lost some concepts. Rewrite it so every listed concept is expressed again.

Requirements:
- Weave each concept into the existing sentences or add it where it fits the flow of the text.
- Do not append a separate list, glossary or "concepts" section.
- Keep everything the text already says.
- Stay as close to the current length as the missing concepts allow.
- Return the full rewritten text in "content" and a short rationale.

Concepts that must reappear:
{{range .Lost}}- {{.Concept}}
{{end}}
Compressed text:
{{.Content}}
`))

var restoreSchema = oracle.Schema{
	Name: "restoration",
	CUE: `
#Output: {
	content!:   string
	rationale?: string
	...
}
`,
	Example: `{"content": "Return errors explicitly; keep functions small so each error path stays visible.", "rationale": "Folded the small-functions rule into the error sentence."}`,
}

// Payload is the structured input sent with every restoration request.
type Payload struct {
	Content string
	Lost    []types.ConceptKernel
}

// Options tune a single restoration.
type Options struct {
	Bypass bool
}

// Restorer wraps the restoration oracle call.
type Restorer struct {
	oracle oracle.Oracle
	cache  *cache.Facade
	log    *slog.Logger
}

// New creates a Restorer. cache may be nil.
func New(o oracle.Oracle, c *cache.Facade, log *slog.Logger) *Restorer {
	if log == nil {
		log = slog.Default()
	}
	return &Restorer{oracle: o, cache: c, log: log}
}

// Restore rewrites content so the lost kernels are expressed again. With no
// lost kernels content is returned unchanged and the oracle is not called.
// Oracle failures are returned, and a blank rewrite counts as malformed.
func (r *Restorer) Restore(ctx context.Context, content string, lost []types.ConceptKernel, opts Options) (types.RestoreResult, error) {
	if len(lost) == 0 {
		return types.RestoreResult{Content: content}, nil
	}

	key, err := cache.Key("restore", map[string]any{
		"content": content,
		"lost":    lost,
		"oracle":  r.oracle.Identity(),
	})
	if err != nil {
		return types.RestoreResult{}, err
	}

	result, hit, err := cache.Memo(ctx, r.cache, key, opts.Bypass, func(ctx context.Context) (types.RestoreResult, error) {
		payload := Payload{Content: content, Lost: lost}
		var buf bytes.Buffer
		if err := restorePromptTmpl.Execute(&buf, payload); err != nil {
			return types.RestoreResult{}, fmt.Errorf("rendering prompt: %w", err)
		}
		return oracleRestore(ctx, r.oracle, buf.String(), payload)
	})
	if err != nil {
		return types.RestoreResult{}, fmt.Errorf("restoring %d kernels: %w", len(lost), err)
	}
	r.log.Debug("restored kernels", "lost", len(lost), "cache_hit", hit)
	return result, nil
}

func oracleRestore(ctx context.Context, o oracle.Oracle, prompt string, payload Payload) (types.RestoreResult, error) {
	resp, _, err := oracle.Ask[types.RestoreResult](ctx, o, oracle.Request{
		Op:      opRestore,
		Role:    roleContext,
		Prompt:  prompt,
		Schema:  restoreSchema,
		Payload: payload,
	})
	if err != nil {
		return types.RestoreResult{}, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return types.RestoreResult{}, &types.OracleError{Kind: types.OracleMalformed, Op: opRestore, Err: errors.New("restoration returned empty content")}
	}
	return resp, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify checks which concept kernels survive in a candidate text.
package verify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/pdiddy/kernel-press/internal/cache"
	"github.com/pdiddy/kernel-press/internal/oracle"
	"github.com/pdiddy/kernel-press/pkg/types"
)

const opVerify = "verify"

const roleContext = `You are a retention auditor. You decide whether each listed idea can still be recovered by a careful reader of a candidate text. Paraphrase counts as retained; the exact wording is not required.`

var verifyPromptTmpl = template.Must(template.New("verify").Parse(`For every kernel below, decide whether its concept is still expressed in the candidate text.

Answer one check per kernel id:
- retained: true when a reader of the candidate would still learn the concept, even if rephrased or abbreviated
- evidence: a short quote or paraphrase from the candidate supporting a retained verdict, or null

Kernels:
{{range .Kernels}}- {{.ID}}: {{.Concept}}
{{end}}
Candidate text:
{{.Content}}
`))

var verifySchema = oracle.Schema{
	Name: "retention_checks",
	CUE: `
#Output: {
	checks!: [...{
		kernelId!: string
		retained!: bool
		evidence?: string | null
		...
	}]
	rationale?: string
	...
}
`,
	Example: `{"checks": [{"kernelId": "k1", "retained": true, "evidence": "return errs, never panic"}, {"kernelId": "k2", "retained": false, "evidence": null}], "rationale": "k2 was dropped in the compression."}`,
}

// Payload is the structured input sent with every retention request.
type Payload struct {
	Kernels []types.ConceptKernel
	Content string
}

type aiResponse struct {
	Checks    []aiCheck `json:"checks"`
	Rationale string    `json:"rationale"`
}

type aiCheck struct {
	KernelID string  `json:"kernelId"`
	Retained bool    `json:"retained"`
	Evidence *string `json:"evidence"`
}

// Options tune a single verification.
type Options struct {
	Bypass bool
}

// Verifier wraps the retention oracle call.
type Verifier struct {
	oracle oracle.Oracle
	cache  *cache.Facade
	log    *slog.Logger
}

// New creates a Verifier. cache may be nil.
func New(o oracle.Oracle, c *cache.Facade, log *slog.Logger) *Verifier {
	if log == nil {
		log = slog.Default()
	}
	return &Verifier{oracle: o, cache: c, log: log}
}

// Verify partitions kernels into retained and lost with respect to content.
// Every kernel lands in exactly one of the two lists; a kernel the oracle
// does not mention counts as lost. No kernels is vacuously fully retained,
// and blank content loses every kernel; neither calls the oracle.
func (v *Verifier) Verify(ctx context.Context, kernels []types.ConceptKernel, content string, opts Options) (types.RetentionReport, error) {
	if len(kernels) == 0 {
		return types.RetentionReport{
			Retained:      []types.ConceptKernel{},
			Lost:          []types.ConceptKernel{},
			RetentionRate: 1,
			Rationale:     "no kernels to verify",
		}, nil
	}
	if strings.TrimSpace(content) == "" {
		return types.RetentionReport{
			Retained:      []types.ConceptKernel{},
			Lost:          append([]types.ConceptKernel(nil), kernels...),
			RetentionRate: 0,
			Rationale:     "candidate text is blank",
		}, nil
	}

	key, err := cache.Key("verify", map[string]any{
		"kernels": kernels,
		"content": content,
		"oracle":  v.oracle.Identity(),
	})
	if err != nil {
		return types.RetentionReport{}, err
	}

	report, hit, err := cache.Memo(ctx, v.cache, key, opts.Bypass, func(ctx context.Context) (types.RetentionReport, error) {
		return v.ask(ctx, kernels, content)
	})
	if err != nil {
		return types.RetentionReport{}, fmt.Errorf("verifying %d kernels: %w", len(kernels), err)
	}
	v.log.Debug("verified retention", "kernels", len(kernels), "retained", len(report.Retained), "cache_hit", hit)
	return report, nil
}

func (v *Verifier) ask(ctx context.Context, kernels []types.ConceptKernel, content string) (types.RetentionReport, error) {
	payload := Payload{Kernels: kernels, Content: content}
	var buf bytes.Buffer
	if err := verifyPromptTmpl.Execute(&buf, payload); err != nil {
		return types.RetentionReport{}, fmt.Errorf("rendering prompt: %w", err)
	}

	resp, _, err := oracle.Ask[aiResponse](ctx, v.oracle, oracle.Request{
		Op:      opVerify,
		Role:    roleContext,
		Prompt:  buf.String(),
		Schema:  verifySchema,
		Payload: payload,
	})
	if err != nil {
		return types.RetentionReport{}, err
	}
	return buildReport(kernels, resp), nil
}

// buildReport applies the oracle's checks to kernels in input order. The
// first check for an id wins.
func buildReport(kernels []types.ConceptKernel, resp aiResponse) types.RetentionReport {
	byID := make(map[string]aiCheck, len(resp.Checks))
	for _, c := range resp.Checks {
		id := strings.TrimSpace(c.KernelID)
		if _, dup := byID[id]; !dup {
			byID[id] = c
		}
	}

	report := types.RetentionReport{
		Retained:  []types.ConceptKernel{},
		Lost:      []types.ConceptKernel{},
		Checks:    make([]types.RetentionCheck, 0, len(kernels)),
		Rationale: resp.Rationale,
	}
	for _, k := range kernels {
		c, ok := byID[k.ID]
		check := types.RetentionCheck{KernelID: k.ID, Retained: ok && c.Retained}
		if ok && c.Evidence != nil {
			check.Evidence = *c.Evidence
		}
		report.Checks = append(report.Checks, check)
		if check.Retained {
			report.Retained = append(report.Retained, k)
		} else {
			report.Lost = append(report.Lost, k)
		}
	}
	report.RetentionRate = float64(len(report.Retained)) / float64(len(kernels))
	return report
}

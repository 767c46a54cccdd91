// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/kernel-press/internal/oracle"
)

const roleContext = `You are a semantic kernel extractor. You read instructional and technical documents and identify the atomic ideas they teach: the rules, principles, definitions, patterns, and constraints a reader must retain.`

// extractionPromptTmpl is rendered once per extraction attempt. The oracle,
// not post-processing, deduplicates repeated ideas and keeps illustrative
// examples from counting as separate kernels.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`Extract the concept kernels of the document below.

A concept kernel is one atomic idea stated as a single self-contained sentence. For each kernel provide:
- id: a short identifier unique within your answer (e.g. "k1", "k2")
- concept: the idea, phrased so it stands on its own without the document
- category: one of "rule", "principle", "definition", "pattern", "constraint"
  - rule: something the reader must or must not do
  - principle: a guiding belief or value behind rules
  - definition: what a term means
  - pattern: a recurring approach or structure to apply
  - constraint: a limit or boundary condition

Guidelines:
- When the document states the same idea more than once, emit it once.
- Examples, illustrations and analogies support a kernel; they are not kernels themselves.
- Do not invent ideas the document does not state.
- Add a short rationale describing how you decided what counts as a kernel.

Document:
{{.Document}}
`))

var extractionSchema = oracle.Schema{
	Name: "kernel_extraction",
	CUE: `
#Output: {
	kernels!: [...{
		id?:       string
		concept!:  string
		category?: string
		...
	}]
	rationale?: string
	...
}
`,
	Example: `{"kernels": [{"id": "k1", "concept": "Every public function returns an explicit error instead of panicking.", "category": "rule"}], "rationale": "One rule stated twice, merged."}`,
}

// renderPrompt executes the extraction prompt template with the document.
func renderPrompt(document string) (string, error) {
	var buf bytes.Buffer
	if err := extractionPromptTmpl.Execute(&buf, struct{ Document string }{Document: document}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

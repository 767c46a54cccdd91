// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package press

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/kernel-press/internal/oracle"
	"github.com/pdiddy/kernel-press/pkg/types"
)

const roleContext = `You are a text compressor. You apply the requested transforms to a document, making it as short as the transforms allow while keeping its meaning.`

var passPromptTmpl = template.Must(template.New("pass").Parse(`Apply this compression pass to the text below.

Directives, in order as written: {{.Directives}}

{{range .Mechanisms}}{{.Name}}: {{.Instruction}}
{{end}}{{if .Kernels}}
The pass carries the req:kernels modifier (placement: {{.Placement}}). Every concept below must remain expressed in your output, possibly rephrased. Interpret the modifier's position among the directives as written.
{{range .Kernels}}- {{.ID}}: {{.Concept}}
{{end}}{{end}}
Return the full transformed text in "content".

Text:
{{.Content}}
`))

var passSchema = oracle.Schema{
	Name: "press_pass",
	CUE: `
#Output: {
	content!:   string
	rationale?: string
	...
}
`,
	Example: `{"content": "Return errors explicitly. Keep functions small.", "rationale": "Dropped filler."}`,
}

// Payload is the structured input sent with every pass request.
type Payload struct {
	Content    string
	Directives string
	Placement  string
	Mechanisms []Mechanism
	Kernels    []types.ConceptKernel
}

func renderPrompt(p Payload) (string, error) {
	var buf bytes.Buffer
	if err := passPromptTmpl.Execute(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cluster

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/kernel-press/internal/oracle"
)

const roleContext = `You are a semantic clustering judge. You group statements that express the same underlying idea, even when they are phrased differently, and keep distinct ideas apart.`

var clusterPromptTmpl = template.Must(template.New("cluster").Parse(`Group the concept kernels below into clusters of semantically equivalent ideas.

Rules:
- Every kernel id must appear in exactly one cluster, including kernels that match nothing else (a cluster of one).
- Two kernels belong together when a reader who retained one would have retained the other.
- Pick as representative the member with the clearest and most complete phrasing.
- Use the ids exactly as written.
- Add a short rationale describing the groupings.

Kernels:
{{range .Kernels}}- {{.ID}}: {{.Concept}}
{{end}}`))

var clusterSchema = oracle.Schema{
	Name: "kernel_clusters",
	CUE: `
#Output: {
	clusters!: [...{
		representativeId!: string
		memberIds!: [...string]
		...
	}]
	rationale?: string
	...
}
`,
	Example: `{"clusters": [{"representativeId": "r0_k1", "memberIds": ["r0_k1", "r1_k2"]}, {"representativeId": "r1_k1", "memberIds": ["r1_k1"]}], "rationale": "r0_k1 and r1_k2 both require explicit error returns."}`,
}

func renderPrompt(p Payload) (string, error) {
	var buf bytes.Buffer
	if err := clusterPromptTmpl.Execute(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}

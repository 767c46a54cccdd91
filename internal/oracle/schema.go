// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package oracle

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// outputDef is the definition every schema's CUE source must declare.
const outputDef = "#Output"

// Schema declares the output shape of one call site. CUE holds the
// authoritative definition (validated on every response); Example is a
// concrete JSON instance shown to the model. Required fields are declared
// with "!" so their absence fails validation.
type Schema struct {
	Name    string
	CUE     string
	Example string
}

// cue.Context is not safe for concurrent use.
var (
	cueMu  sync.Mutex
	cueCtx = cuecontext.New()
	cueDef = map[string]cue.Value{}
)

// Validate checks data against the schema's #Output definition. A schema
// without CUE source accepts any JSON.
func (s Schema) Validate(data []byte) error {
	if s.CUE == "" {
		return nil
	}
	cueMu.Lock()
	defer cueMu.Unlock()

	def, err := s.definition()
	if err != nil {
		return err
	}
	v := cueCtx.CompileBytes(data)
	if v.Err() != nil {
		return fmt.Errorf("parsing %s output: %w", s.Name, v.Err())
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s output does not match schema: %w", s.Name, err)
	}
	return nil
}

// definition compiles and memoizes the #Output definition. Caller holds cueMu.
func (s Schema) definition() (cue.Value, error) {
	if def, ok := cueDef[s.CUE]; ok {
		return def, nil
	}
	root := cueCtx.CompileString(s.CUE)
	if root.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling %s schema: %w", s.Name, root.Err())
	}
	def := root.LookupPath(cue.ParsePath(outputDef))
	if !def.Exists() {
		return cue.Value{}, fmt.Errorf("schema %s has no %s definition", s.Name, outputDef)
	}
	cueDef[s.CUE] = def
	return def, nil
}

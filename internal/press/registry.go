// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package press

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed mechanisms.yaml
var mechanismsYAML []byte

// Mechanism is a named compression transform.
type Mechanism struct {
	Name        string `yaml:"name"`
	Summary     string `yaml:"summary"`
	Instruction string `yaml:"instruction"`
}

// Registry maps mechanism names to their definitions.
type Registry map[string]Mechanism

// LoadRegistry parses a mechanisms document.
func LoadRegistry(data []byte) (Registry, error) {
	var doc struct {
		Mechanisms []Mechanism `yaml:"mechanisms"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing mechanisms: %w", err)
	}

	reg := make(Registry, len(doc.Mechanisms))
	for _, m := range doc.Mechanisms {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			return nil, fmt.Errorf("mechanism with empty name")
		}
		if strings.ContainsAny(m.Name, "+| ") {
			return nil, fmt.Errorf("mechanism name %q contains a separator", m.Name)
		}
		if _, dup := reg[m.Name]; dup {
			return nil, fmt.Errorf("duplicate mechanism %q", m.Name)
		}
		if strings.TrimSpace(m.Instruction) == "" {
			return nil, fmt.Errorf("mechanism %q has no instruction", m.Name)
		}
		reg[m.Name] = m
	}
	return reg, nil
}

var (
	defaultOnce sync.Once
	defaultReg  Registry
)

// DefaultRegistry returns the built-in mechanisms.
func DefaultRegistry() Registry {
	defaultOnce.Do(func() {
		reg, err := LoadRegistry(mechanismsYAML)
		if err != nil {
			panic(fmt.Sprintf("press: embedded mechanisms: %v", err))
		}
		defaultReg = reg
	})
	return defaultReg
}

// Names returns the mechanism names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package oracletest provides a scripted oracle for tests.
package oracletest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pdiddy/kernel-press/internal/oracle"
)

// Handler answers one call. call is the zero-based index of this call among
// calls with the same Op. The returned value is marshaled to JSON unless it
// is already a json.RawMessage.
type Handler func(call int, req oracle.Request) (any, error)

// Fake is a scripted oracle. It is safe for concurrent use.
type Fake struct {
	ID       string
	Handlers map[string]Handler

	mu       sync.Mutex
	calls    map[string]int
	requests []oracle.Request
}

// New creates a Fake with identity id.
func New(id string) *Fake {
	return &Fake{ID: id, Handlers: map[string]Handler{}, calls: map[string]int{}}
}

// On registers the handler for op and returns f for chaining.
func (f *Fake) On(op string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Handlers[op] = h
	return f
}

// Identity returns the configured identity.
func (f *Fake) Identity() string { return f.ID }

// Ask dispatches to the handler registered for req.Op.
func (f *Fake) Ask(_ context.Context, req oracle.Request) (oracle.Response, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	call := f.calls[req.Op]
	f.calls[req.Op]++
	f.requests = append(f.requests, req)
	h := f.Handlers[req.Op]
	f.mu.Unlock()

	if h == nil {
		return oracle.Response{}, fmt.Errorf("oracletest: no handler for op %q", req.Op)
	}
	v, err := h(call, req)
	if err != nil {
		return oracle.Response{}, err
	}
	if raw, ok := v.(json.RawMessage); ok {
		return oracle.Response{Output: raw, Metrics: oracle.Metrics{InputTokens: 10, OutputTokens: 5}}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return oracle.Response{}, err
	}
	return oracle.Response{Output: data, Metrics: oracle.Metrics{InputTokens: 10, OutputTokens: 5}}, nil
}

// Calls returns how many times op was asked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Total returns the number of calls across all ops.
func (f *Fake) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// Requests returns a copy of every request received, in arrival order.
func (f *Fake) Requests(op string) []oracle.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []oracle.Request
	for _, r := range f.requests {
		if op == "" || r.Op == op {
			out = append(out, r)
		}
	}
	return out
}

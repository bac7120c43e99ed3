// Copyright 2026 The dflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sandbox

import (
	"net/url"
	"time"

	"github.com/dflow-run/dflow/internal/codec"
)

// Headers is a deterministic, order-preserving header bag — a sandbox
// global rather than net/http.Header directly, since map iteration order
// in Go is randomized and would break replay determinism.
type Headers struct {
	om codec.OrderedMap
}

// Set assigns a header value, appending a new key or overwriting an
// existing one in place (preserving first-seen order).
func (h *Headers) Set(key, value string) {
	for i, k := range h.om.Keys {
		if k == key {
			h.om.Values[i] = value
			return
		}
	}
	h.om.Keys = append(h.om.Keys, key)
	h.om.Values = append(h.om.Values, value)
}

// Get returns a header value, or "" if unset.
func (h *Headers) Get(key string) string {
	for i, k := range h.om.Keys {
		if k == key {
			s, _ := h.om.Values[i].(string)
			return s
		}
	}
	return ""
}

// Request is the inbound payload a resumed webhook hook carries.
type Request struct {
	Method  string
	URL     string
	Headers *Headers
	Body    []byte
}

// Response is the outbound payload an orchestrator pushes back through a
// webhook hook's writable response stream.
type Response struct {
	Status  int
	Headers *Headers
	Body    []byte
}

// URLSearchParams is a deterministic query-string value, constructed
// through the global bag rather than net/url.Values directly for the same
// iteration-order reason as Headers.
type URLSearchParams struct {
	values url.Values
	order  []string
}

// Set assigns a query parameter, recording first-seen order.
func (p *URLSearchParams) Set(key, value string) {
	if p.values == nil {
		p.values = url.Values{}
	}
	if _, exists := p.values[key]; !exists {
		p.order = append(p.order, key)
	}
	p.values.Set(key, value)
}

// Get returns a query parameter's value, or "" if unset.
func (p *URLSearchParams) Get(key string) string {
	if p.values == nil {
		return ""
	}
	return p.values.Get(key)
}

// Encode renders the parameters in first-seen order.
func (p *URLSearchParams) Encode() string {
	v := url.Values{}
	for _, k := range p.order {
		v[k] = p.values[k]
	}
	return v.Encode()
}

// Globals is the scoped bag of runtime-capability constructors a sandbox
// exposes to orchestrator code, per spec.md §4.6: objects it builds during
// replay must carry the same identity as objects built during the original
// live invocation, which is why every constructor here is a pure function
// of the sandbox's own deterministic Clock/IDSequence rather than of
// ambient state.
type Globals struct {
	clock *Clock
	ids   *IDSequence
}

// NewGlobals binds a capability bag to one replay's clock and id sequence.
func NewGlobals(clock *Clock, ids *IDSequence) *Globals {
	return &Globals{clock: clock, ids: ids}
}

// NewMap constructs an empty ordered map value.
func (g *Globals) NewMap() *codec.OrderedMap {
	return &codec.OrderedMap{}
}

// NewSet constructs an empty set value.
func (g *Globals) NewSet() *codec.Set {
	return &codec.Set{}
}

// NewDate returns the sandbox's fixed current time.
func (g *Globals) NewDate() time.Time {
	return g.clock.Now()
}

// NewHeaders constructs an empty header bag.
func (g *Globals) NewHeaders() *Headers {
	return &Headers{}
}

// NewURLSearchParams constructs an empty query-parameter bag.
func (g *Globals) NewURLSearchParams() *URLSearchParams {
	return &URLSearchParams{}
}

// NewStreamRef constructs a reference to a named, run-scoped stream,
// carrying this sandbox's run identity so it round-trips through the
// codec's StreamRef builtin.
func (g *Globals) NewStreamRef(runID, name string) codec.StreamRef {
	return codec.StreamRef{StreamID: name, RunID: runID}
}

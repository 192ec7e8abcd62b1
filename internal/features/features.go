// Package features implements the proposal feature flags debugger.Config
// carries: which post-MVP WebAssembly proposals the interpreter is willing
// to execute. The env-var-driven string-set toggle follows wazero's
// internal/features shape, retargeted to the proposal names this module
// recognizes: bulk-memory, reference-types, sign-extension,
// saturating-float-to-int, simd, threads, exception-handling, tail-call.
// The decoder lifts every opcode regardless of the set; the interpreter
// checks only tail-call, simd and threads before executing their opcodes.
package features

import (
	"os"
	"strings"
	"sync"
)

const (
	BulkMemory           = "bulk-memory"
	ReferenceTypes       = "reference-types"
	SignExtension        = "sign-extension"
	SaturatingFloatToInt = "saturating-float-to-int"
	SIMD                 = "simd"
	Threads              = "threads"
	ExceptionHandling    = "exception-handling"
	TailCall             = "tail-call"

	// EnvVarName is the environment variable carrying a comma-separated
	// list of features to enable at process start.
	EnvVarName = "WASMINSPECT_FEATURES"
)

var all = []string{
	BulkMemory, ReferenceTypes, SignExtension, SaturatingFloatToInt,
	SIMD, Threads, ExceptionHandling, TailCall,
}

// Set is an independent, mutable collection of enabled feature names. The
// zero value has every MVP-adjacent feature disabled; use NewDefault for
// the set this module instantiates modules with unless a caller
// overrides it.
type Set struct {
	mu      sync.RWMutex
	enabled map[string]bool
}

// NewDefault returns a Set with every proposal this module supports
// turned on — matching the decoder's unconditional willingness to lift
// their bytecode; Set exists so a session can narrow that
// down, not so one has to opt in from nothing.
func NewDefault() *Set {
	s := &Set{enabled: map[string]bool{}}
	s.Enable(all...)
	return s
}

// FromEnvironment builds a Set from the WASMINSPECT_FEATURES environment
// variable, falling back to NewDefault's full set if it is unset.
func FromEnvironment() *Set {
	v, ok := os.LookupEnv(EnvVarName)
	if !ok || strings.TrimSpace(v) == "" {
		return NewDefault()
	}
	s := &Set{enabled: map[string]bool{}}
	s.Enable(strings.Split(v, ",")...)
	return s
}

// Enable turns on the named features, ignoring unrecognized names. A
// zero-value Set initializes its internal map on first use, so
// `(&Set{}).Enable(...)` works without calling a constructor.
func (s *Set) Enable(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled == nil {
		s.enabled = map[string]bool{}
	}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if supported(n) {
			s.enabled[n] = true
		}
	}
}

// Disable turns off the named features.
func (s *Set) Disable(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range names {
		delete(s.enabled, strings.TrimSpace(n))
	}
}

// Have reports whether the named feature is enabled in this set.
func (s *Set) Have(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled[name]
}

// List returns the currently enabled feature names in an unspecified
// order.
func (s *Set) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.enabled))
	for n := range s.enabled {
		out = append(out, n)
	}
	return out
}

func supported(feature string) bool {
	for _, f := range all {
		if f == feature {
			return true
		}
	}
	return false
}

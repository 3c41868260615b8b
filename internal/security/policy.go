// Package security classifies shell commands and error messages.
//
// The two predicates exposed here, IsDangerousCommand and IsCriticalError, are
// the only gate between "safe to auto-heal and keep going" and "must stop".
// Patterns live in explicit tables on a Policy so new entries can be added
// without touching callers.
package security

import (
	"regexp"
	"sync"
)

// Pattern is a named regular expression in a policy table.
type Pattern struct {
	Name        string         // Short identifier used in logs
	Regexp      *regexp.Regexp // Compiled matcher
	Description string         // Why the pattern is in the table
}

// Policy holds the deny-list for shell commands and the list of error
// messages that must abort instead of being repaired.
// A Policy is safe for concurrent use.
type Policy struct {
	mu                sync.RWMutex
	dangerousCommands []Pattern
	criticalErrors    []Pattern
}

// NewPolicy creates a Policy with the given tables.
func NewPolicy(dangerous, critical []Pattern) *Policy {
	return &Policy{
		dangerousCommands: append([]Pattern(nil), dangerous...),
		criticalErrors:    append([]Pattern(nil), critical...),
	}
}

// DefaultPolicy returns a new Policy populated with the built-in tables.
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultDangerousCommands(), DefaultCriticalErrors())
}

// AddDangerousCommand appends a pattern to the command deny-list.
func (p *Policy) AddDangerousCommand(pattern Pattern) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dangerousCommands = append(p.dangerousCommands, pattern)
}

// AddCriticalError appends a pattern to the critical error list.
func (p *Policy) AddCriticalError(pattern Pattern) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.criticalErrors = append(p.criticalErrors, pattern)
}

// IsDangerousCommand reports whether cmd matches the deny-list.
// Empty input is never dangerous.
func (p *Policy) IsDangerousCommand(cmd string) bool {
	_, ok := p.MatchDangerousCommand(cmd)
	return ok
}

// MatchDangerousCommand returns the first deny-list pattern matching cmd.
func (p *Policy) MatchDangerousCommand(cmd string) (*Pattern, bool) {
	if cmd == "" {
		return nil, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return match(p.dangerousCommands, cmd)
}

// IsCriticalError reports whether message describes a failure that must abort
// the current operation (missing or unreadable file, parse failure,
// permission denial). Empty input is never critical.
func (p *Policy) IsCriticalError(message string) bool {
	_, ok := p.MatchCriticalError(message)
	return ok
}

// MatchCriticalError returns the first critical pattern matching message.
func (p *Policy) MatchCriticalError(message string) (*Pattern, bool) {
	if message == "" {
		return nil, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return match(p.criticalErrors, message)
}

func match(patterns []Pattern, s string) (*Pattern, bool) {
	for i := range patterns {
		if patterns[i].Regexp != nil && patterns[i].Regexp.MatchString(s) {
			found := patterns[i]
			return &found, true
		}
	}
	return nil, false
}

var (
	defaultPolicy     *Policy
	defaultPolicyOnce sync.Once
)

func shared() *Policy {
	defaultPolicyOnce.Do(func() {
		defaultPolicy = DefaultPolicy()
	})
	return defaultPolicy
}

// IsDangerousCommand checks cmd against the built-in deny-list.
func IsDangerousCommand(cmd string) bool {
	return shared().IsDangerousCommand(cmd)
}

// IsCriticalError checks message against the built-in critical error list.
func IsCriticalError(message string) bool {
	return shared().IsCriticalError(message)
}

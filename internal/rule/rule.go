// Package rule implements the accept/drop filter evaluated before
// every plugin invocation (spec.md §4.4): an ordered list of rules,
// each matching a subset of the dispatch tuple (server, channel,
// origin, plugin, event), with the last matching rule's action
// winning. Matching is case-insensitive for channel and origin and
// exact for server, plugin and event — the policy spec.md §9's open
// question resolves explicitly, applied consistently here (the
// source's inconsistency between the two dimensions is not
// reproduced).
package rule

import (
	"strings"
	"sync"

	"github.com/markand/irccd/internal/ircerr"
)

// Action is the outcome of evaluating a rule list against one tuple.
type Action string

const (
	Accept Action = "accept"
	Drop   Action = "drop"
)

// Rule is one ordered element of a rule list (spec.md §3 "Rule"). Each
// match-set is a plain set of strings; an empty set matches any value
// for that dimension.
type Rule struct {
	Servers  []string
	Channels []string
	Origins  []string
	Plugins  []string
	Events   []string
	Action   Action
}

// Tuple is the (server, channel, origin, plugin, event) dispatch key
// the glossary defines, the sole input to rule evaluation.
type Tuple struct {
	Server  string
	Channel string
	Origin  string
	Plugin  string
	Event   string
}

// Patch describes a rule-edit mutation (spec.md §4.4): for each of the
// five dimensions, a set of values to add and a set to remove, plus an
// optional action overwrite.
type Patch struct {
	AddServers,     RemoveServers     []string
	AddChannels,    RemoveChannels    []string
	AddOrigins,     RemoveOrigins     []string
	AddPlugins,     RemovePlugins     []string
	AddEvents,      RemoveEvents      []string
	Action          *Action
}

// List is the ordered, mutable rule list the bot's rule engine
// evaluates. Safe for concurrent use.
type List struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewList creates an empty rule list.
func NewList() *List {
	return &List{}
}

// Snapshot returns a copy of the current rule list in order.
func (l *List) Snapshot() []Rule {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Rule, len(l.rules))
	copy(out, l.rules)
	return out
}

// Len reports the number of rules.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rules)
}

// Evaluate walks the list in index order, starting from Accept, and
// returns the action of the last rule whose every non-empty match-set
// contains the corresponding tuple value. An empty list yields Accept
// (spec.md §4.4). This is a pure function of the list and tuple: the
// same inputs always yield the same decision (spec.md §8).
func (l *List) Evaluate(t Tuple) Action {
	l.mu.RLock()
	defer l.mu.RUnlock()

	decision := Accept
	for _, r := range l.rules {
		if matches(r, t) {
			decision = r.Action
		}
	}
	return decision
}

func matches(r Rule, t Tuple) bool {
	return matchExact(r.Servers, t.Server) &&
		matchFold(r.Channels, t.Channel) &&
		matchFold(r.Origins, t.Origin) &&
		matchExact(r.Plugins, t.Plugin) &&
		matchExact(r.Events, t.Event)
}

func matchExact(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func matchFold(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// Add inserts r at index (append when index < 0 or index >= current
// length), returning the index it ended up at.
func (l *List) Add(r Rule, index int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r.Action == "" {
		r.Action = Accept
	}
	if index < 0 || index >= len(l.rules) {
		l.rules = append(l.rules, r)
		return len(l.rules) - 1
	}
	l.rules = append(l.rules, Rule{})
	copy(l.rules[index+1:], l.rules[index:])
	l.rules[index] = r
	return index
}

// Get returns a copy of the rule at index.
func (l *List) Get(index int) (Rule, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.rules) {
		return Rule{}, ircerr.Rule(ircerr.RuleInvalidIndex, "rule index out of range")
	}
	return l.rules[index], nil
}

// Edit applies patch to the rule at index in place.
func (l *List) Edit(index int, patch Patch) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.rules) {
		return ircerr.Rule(ircerr.RuleInvalidIndex, "rule index out of range")
	}
	r := &l.rules[index]

	r.Servers = applySet(r.Servers, patch.AddServers, patch.RemoveServers)
	r.Channels = applySet(r.Channels, patch.AddChannels, patch.RemoveChannels)
	r.Origins = applySet(r.Origins, patch.AddOrigins, patch.RemoveOrigins)
	r.Plugins = applySet(r.Plugins, patch.AddPlugins, patch.RemovePlugins)
	r.Events = applySet(r.Events, patch.AddEvents, patch.RemoveEvents)

	if patch.Action != nil {
		if *patch.Action != Accept && *patch.Action != Drop {
			return ircerr.Rule(ircerr.RuleInvalidAction, "action must be accept or drop")
		}
		r.Action = *patch.Action
	}
	return nil
}

func applySet(current, add, remove []string) []string {
	set := make(map[string]struct{}, len(current))
	for _, v := range current {
		set[v] = struct{}{}
	}
	for _, v := range remove {
		delete(set, v)
	}
	for _, v := range add {
		set[v] = struct{}{}
	}
	out := make([]string, 0, len(set))
	// Preserve original relative order where possible, then append new values.
	seen := make(map[string]struct{}, len(set))
	for _, v := range current {
		if _, ok := set[v]; ok {
			if _, already := seen[v]; !already {
				out = append(out, v)
				seen[v] = struct{}{}
			}
		}
	}
	for _, v := range add {
		if _, ok := set[v]; ok {
			if _, already := seen[v]; !already {
				out = append(out, v)
				seen[v] = struct{}{}
			}
		}
	}
	return out
}

// Move relocates the rule at from so its new index equals to,
// shifting the rules between them (spec.md §4.4).
func (l *List) Move(from, to int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.rules)
	if from < 0 || from >= n {
		return ircerr.Rule(ircerr.RuleInvalidIndex, "rule index out of range")
	}
	if to < 0 {
		to = 0
	}
	if to >= n {
		to = n - 1
	}
	r := l.rules[from]
	l.rules = append(l.rules[:from], l.rules[from+1:]...)
	l.rules = append(l.rules, Rule{})
	copy(l.rules[to+1:], l.rules[to:])
	l.rules[to] = r
	return nil
}

// Remove deletes the rule at index.
func (l *List) Remove(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.rules) {
		return ircerr.Rule(ircerr.RuleInvalidIndex, "rule index out of range")
	}
	l.rules = append(l.rules[:index], l.rules[index+1:]...)
	return nil
}

// Replace atomically swaps the entire rule list, used when loading
// from config or the persistence layer at startup.
func (l *List) Replace(rules []Rule) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rules = append([]Rule(nil), rules...)
}

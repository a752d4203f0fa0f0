// Package compliance evaluates time entries against statutory working-time
// limits and configurable break rules.
package compliance

import (
	"sort"
	"time"
)

// Statutory thresholds in minutes. A value must exceed the threshold to fire.
const (
	DailyWarningMinutes    = 600
	DailyViolationMinutes  = 720
	WeeklyWarningMinutes   = 2880
	WeeklyViolationMinutes = 3600
)

// Severity classifies a finding.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Kind identifies the rule that produced a finding.
type Kind string

const (
	KindDailyWarning        Kind = "DAILY_WARNING"
	KindDailyViolation      Kind = "DAILY_VIOLATION"
	KindDailyTotalWarning   Kind = "DAILY_TOTAL_WARNING"
	KindDailyTotalViolation Kind = "DAILY_TOTAL_VIOLATION"
	KindWeeklyWarning       Kind = "WEEKLY_WARNING"
	KindWeeklyViolation     Kind = "WEEKLY_VIOLATION"
	KindBreakRuleViolation  Kind = "BREAK_RULE_VIOLATION"
)

// Finding is one classified compliance observation. Findings are produced
// fresh per validation and only persisted inside a ledger payload.
type Finding struct {
	Kind      Kind     `json:"kind"`
	Severity  Severity `json:"severity"`
	Value     int      `json:"value"`
	Threshold int      `json:"threshold"`
	Message   string   `json:"message"`
	RuleID    *int64   `json:"rule_id,omitempty"`
	RuleName  string   `json:"rule_name,omitempty"`
}

// ValidationResult is the outcome of one validation call.
type ValidationResult struct {
	Valid      bool      `json:"valid"`
	Warnings   []Finding `json:"warnings"`
	Violations []Finding `json:"violations"`
	NetMinutes int       `json:"net_minutes"`
	DayTotal   int       `json:"day_total"`
	WeekTotal  int       `json:"week_total"`
}

// HasFindings reports whether the result carries any warning or violation.
func (r ValidationResult) HasFindings() bool {
	return len(r.Warnings) > 0 || len(r.Violations) > 0
}

// BreakRule requires a minimum break once gross work exceeds MinWorkMinutes.
// Thresholds are assumed to be validated by configuration management.
type BreakRule struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	MinWorkMinutes  int    `json:"min_work_minutes"`
	MinBreakMinutes int    `json:"min_break_minutes"`
	WarningText     string `json:"warning_text"`
	Active          bool   `json:"active"`
}

// RuleSet is an immutable snapshot of the active break rules ordered by
// descending MinWorkMinutes.
type RuleSet struct {
	rules    []BreakRule
	loadedAt time.Time
}

// NewRuleSet keeps the active rules of rules and orders them.
func NewRuleSet(rules []BreakRule, loadedAt time.Time) RuleSet {
	active := make([]BreakRule, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].MinWorkMinutes > active[j].MinWorkMinutes
	})
	return RuleSet{rules: active, loadedAt: loadedAt}
}

// Rules returns a copy of the ordered active rules.
func (s RuleSet) Rules() []BreakRule {
	return append([]BreakRule(nil), s.rules...)
}

// Len returns the number of active rules.
func (s RuleSet) Len() int {
	return len(s.rules)
}

// LoadedAt returns when the snapshot was taken.
func (s RuleSet) LoadedAt() time.Time {
	return s.loadedAt
}

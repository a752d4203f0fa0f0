package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/timeguard/timeguard/internal/timeentries"
)

// Totals sums persisted worked minutes. *timeentries.Aggregator implements it.
type Totals interface {
	DailyTotal(ctx context.Context, employeeID int64, date time.Time, excludeID *int64) (int, error)
	WeeklyTotal(ctx context.Context, employeeID int64, week timeentries.WeekBucket, excludeID *int64) (int, error)
}

// Engine classifies a candidate against statutory limits and break rules.
// Threshold breaches are returned as findings, never as errors.
type Engine struct {
	totals   Totals
	messages *Messages
}

// NewEngine constructs an engine.
func NewEngine(totals Totals, messages *Messages) *Engine {
	return &Engine{totals: totals, messages: messages}
}

// Validate evaluates c. Errors are returned only for invalid input (wrapping
// timeentries.ErrInvalidInput) or when totals cannot be read.
func (e *Engine) Validate(ctx context.Context, c timeentries.Candidate, rules RuleSet) (ValidationResult, error) {
	if err := timeentries.Check(c); err != nil {
		return ValidationResult{}, err
	}
	gross, err := timeentries.GrossMinutes(c)
	if err != nil {
		return ValidationResult{}, err
	}
	net, err := timeentries.NetMinutes(c)
	if err != nil {
		return ValidationResult{}, err
	}

	var findings []Finding

	switch {
	case net > DailyViolationMinutes:
		findings = append(findings, e.finding(KindDailyViolation, SeverityCritical, net, DailyViolationMinutes, e.messages.dailyViolation(net)))
	case net > DailyWarningMinutes:
		findings = append(findings, e.finding(KindDailyWarning, SeverityWarning, net, DailyWarningMinutes, e.messages.dailyWarning(net)))
	}

	persistedDay, err := e.totals.DailyTotal(ctx, c.EmployeeID, c.Date, c.ExcludeID)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("compliance: %w", err)
	}
	dayTotal := persistedDay + net
	switch {
	case dayTotal > DailyViolationMinutes:
		findings = append(findings, e.finding(KindDailyTotalViolation, SeverityCritical, dayTotal, DailyViolationMinutes, e.messages.dailyTotalViolation(dayTotal)))
	case dayTotal > DailyWarningMinutes && net <= DailyWarningMinutes:
		findings = append(findings, e.finding(KindDailyTotalWarning, SeverityWarning, dayTotal, DailyWarningMinutes, e.messages.dailyTotalWarning(dayTotal)))
	}

	persistedWeek, err := e.totals.WeeklyTotal(ctx, c.EmployeeID, timeentries.WeekOf(c.Date), c.ExcludeID)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("compliance: %w", err)
	}
	weekTotal := persistedWeek + net
	switch {
	case weekTotal > WeeklyViolationMinutes:
		findings = append(findings, e.finding(KindWeeklyViolation, SeverityCritical, weekTotal, WeeklyViolationMinutes, e.messages.weeklyViolation(weekTotal)))
	case weekTotal > WeeklyWarningMinutes:
		findings = append(findings, e.finding(KindWeeklyWarning, SeverityWarning, weekTotal, WeeklyWarningMinutes, e.messages.weeklyWarning(weekTotal)))
	}

	for _, rule := range rules.rules {
		if gross > rule.MinWorkMinutes && c.BreakMinutes < rule.MinBreakMinutes {
			f := e.finding(KindBreakRuleViolation, SeverityCritical, c.BreakMinutes, rule.MinBreakMinutes, e.messages.breakRule(rule, gross, c.BreakMinutes))
			id := rule.ID
			f.RuleID = &id
			f.RuleName = rule.Name
			findings = append(findings, f)
		}
	}

	result := ValidationResult{
		Warnings:   []Finding{},
		Violations: []Finding{},
		NetMinutes: net,
		DayTotal:   dayTotal,
		WeekTotal:  weekTotal,
	}
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			result.Violations = append(result.Violations, f)
		} else {
			result.Warnings = append(result.Warnings, f)
		}
	}
	result.Valid = len(result.Violations) == 0
	return result, nil
}

func (e *Engine) finding(kind Kind, severity Severity, value, threshold int, msg string) Finding {
	return Finding{Kind: kind, Severity: severity, Value: value, Threshold: threshold, Message: msg}
}

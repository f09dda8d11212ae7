package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	OnFetchFailureOpen   = "fail_open"
	OnFetchFailureClosed = "fail_closed"

	ReportFirst = "first"
	ReportAll   = "all"
)

// Policy is the versioned payroll policy file.
//
//	version: 1
//	overlap:
//	  on_fetch_failure: fail_open
//	  report: all
//	scope:
//	  allow_unresolved_individuals: false
//	period:
//	  min_year: 2000
type Policy struct {
	Version int           `yaml:"version"`
	Overlap OverlapPolicy `yaml:"overlap"`
	Scope   ScopePolicy   `yaml:"scope"`
	Period  PeriodPolicy  `yaml:"period"`
}

type OverlapPolicy struct {
	OnFetchFailure string `yaml:"on_fetch_failure"`
	Report         string `yaml:"report"`
}

type ScopePolicy struct {
	AllowUnresolvedIndividuals bool `yaml:"allow_unresolved_individuals"`
}

type PeriodPolicy struct {
	MinYear int `yaml:"min_year"`
}

func DefaultPolicy() Policy {
	return Policy{
		Version: 1,
		Overlap: OverlapPolicy{OnFetchFailure: OnFetchFailureOpen, Report: ReportAll},
		Period:  PeriodPolicy{MinYear: 2000},
	}
}

// FailClosed reports whether an unreadable collection blocks a preview.
func (p Policy) FailClosed() bool {
	return p.Overlap.OnFetchFailure == OnFetchFailureClosed
}

func (p Policy) ReportAll() bool {
	return p.Overlap.Report == ReportAll
}

// ParsePolicyYAML parses b on top of the defaults.
func ParsePolicyYAML(b []byte) (Policy, error) {
	p := DefaultPolicy()
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Policy{}, fmt.Errorf("policy: %w", err)
	}
	if p.Version != 1 {
		return Policy{}, errors.New("policy: unsupported version")
	}
	switch p.Overlap.OnFetchFailure {
	case OnFetchFailureOpen, OnFetchFailureClosed:
	default:
		return Policy{}, fmt.Errorf("policy: overlap.on_fetch_failure must be %q or %q", OnFetchFailureOpen, OnFetchFailureClosed)
	}
	switch p.Overlap.Report {
	case ReportFirst, ReportAll:
	default:
		return Policy{}, fmt.Errorf("policy: overlap.report must be %q or %q", ReportFirst, ReportAll)
	}
	if p.Period.MinYear < 1 {
		return Policy{}, errors.New("policy: period.min_year must be positive")
	}
	return p, nil
}

// LoadPolicy reads the policy file. An empty path yields the defaults.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, err
	}
	return ParsePolicyYAML(b)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPolicy_EmptyPathUsesDefaults(t *testing.T) {
	p, err := LoadPolicy("")

	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)
	assert.False(t, p.FailClosed())
	assert.True(t, p.ReportAll())
}

func TestLoadPolicy_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payroll-policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: 1
overlap:
  on_fetch_failure: fail_closed
  report: first
scope:
  allow_unresolved_individuals: true
period:
  min_year: 2020
`), 0o600))

	p, err := LoadPolicy(path)

	require.NoError(t, err)
	assert.True(t, p.FailClosed())
	assert.False(t, p.ReportAll())
	assert.True(t, p.Scope.AllowUnresolvedIndividuals)
	assert.Equal(t, 2020, p.Period.MinYear)
}

func TestParsePolicyYAML_PartialKeepsDefaults(t *testing.T) {
	p, err := ParsePolicyYAML([]byte("version: 1\nscope:\n  allow_unresolved_individuals: true\n"))

	require.NoError(t, err)
	assert.Equal(t, OnFetchFailureOpen, p.Overlap.OnFetchFailure)
	assert.Equal(t, ReportAll, p.Overlap.Report)
	assert.Equal(t, 2000, p.Period.MinYear)
}

func TestParsePolicyYAML_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad version":   "version: 2\n",
		"bad failure":   "version: 1\noverlap:\n  on_fetch_failure: retry\n",
		"bad report":    "version: 1\noverlap:\n  report: some\n",
		"bad min year":  "version: 1\nperiod:\n  min_year: 0\n",
		"not yaml list": "- a\n- b\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePolicyYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	c := &Config{
		Database: DatabaseConfig{Password: "secret", MaxConns: 10},
		JWT:      JWTConfig{Secret: "jwt"},
		Upstream: UpstreamConfig{PayrollEngineURL: "http://engine"},
	}
	require.NoError(t, c.Validate())

	c.ServiceBus.ConnectionString = "Endpoint=sb://example/"
	assert.Error(t, c.Validate())

	c.ServiceBus.Queue = "payroll-events"
	assert.NoError(t, c.Validate())

	c.Upstream.PayrollEngineURL = ""
	assert.EqualError(t, c.Validate(), "PAYROLL_ENGINE_URL is required")
}

func TestConfig_DatabaseURL(t *testing.T) {
	c := &Config{Database: DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5433, Name: "hris", SSLMode: "disable"}}
	assert.Equal(t, "postgres://u:p@db:5433/hris?sslmode=disable", c.DatabaseURL())
}

package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertFile struct {
	Groups []struct {
		Name  string      `yaml:"name"`
		Rules []alertRule `yaml:"rules"`
	} `yaml:"groups"`
}

var metricName = regexp.MustCompile(`odyssey_[a-z_]+`)

func loadRegisterRules(t *testing.T) []alertRule {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "register.yml"))
	require.NoError(t, err)

	var file alertFile
	require.NoError(t, yaml.Unmarshal(data, &file))
	for _, g := range file.Groups {
		if g.Name == "register" {
			return g.Rules
		}
	}
	t.Fatal("register alert group missing")
	return nil
}

// exportedNames exercises every collector once so the registries emit them.
func exportedNames(t *testing.T) map[string]bool {
	t.Helper()
	api := NewMetrics()
	api.SaleCompleted(true)
	api.CartRejected("stock_limit")
	api.Middleware(http.NotFoundHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	jobsRegistry := prometheus.NewRegistry()
	jobs := jobmetrics.NewMetrics(jobsRegistry)
	_ = jobs.Track("sales_record").End(errors.New("boom"))
	jobs.AddSkipped("duplicate")
	jobs.ObserveLag("sales_record", time.Now())

	names := make(map[string]bool)
	for _, g := range []prometheus.Gatherer{api.registry, jobsRegistry} {
		families, err := g.Gather()
		require.NoError(t, err)
		for _, f := range families {
			names[f.GetName()] = true
		}
	}
	return names
}

func TestRegisterAlertRules(t *testing.T) {
	rules := loadRegisterRules(t)
	expected := map[string]string{
		"HighErrorRate":      "critical",
		"HighLatency":        "warning",
		"SaleRecordFailures": "warning",
		"SaleRecordLag":      "warning",
	}
	require.Len(t, rules, len(expected))

	runbook, err := os.ReadFile(filepath.Join("..", "..", "docs", "runbook-register.md"))
	require.NoError(t, err)
	exported := exportedNames(t)

	for _, rule := range rules {
		severity, ok := expected[rule.Alert]
		require.True(t, ok, "unexpected rule %s", rule.Alert)
		require.Equal(t, severity, rule.Labels["severity"], rule.Alert)
		require.NotEmpty(t, rule.For, rule.Alert)
		require.NotEmpty(t, rule.Annotations["summary"], rule.Alert)
		require.NotEmpty(t, rule.Annotations["description"], rule.Alert)

		link := rule.Annotations["runbook"]
		require.True(t, strings.HasPrefix(link, "docs/runbook-register.md#"), rule.Alert)
		anchor := strings.TrimPrefix(link, "docs/runbook-register.md#")
		heading := "## " + strings.ReplaceAll(anchor, "-", " ")
		require.Contains(t, strings.ToLower(string(runbook)), heading, rule.Alert)

		names := metricName.FindAllString(rule.Expr, -1)
		require.NotEmpty(t, names, rule.Alert)
		for _, name := range names {
			for _, suffix := range []string{"_bucket", "_sum", "_count"} {
				name = strings.TrimSuffix(name, suffix)
			}
			require.True(t, exported[name], "rule %s queries unknown metric %s", rule.Alert, name)
		}
	}
}

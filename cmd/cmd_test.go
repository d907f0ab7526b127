package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPage = `<!DOCTYPE html>
<html lang="en"><head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width">
<title>Fresh roasted coffee beans delivered weekly</title>
<meta name="description" content="Order fresh roasted coffee beans from our roastery and get them delivered to your door every week.">
</head><body>
<h1>Fresh coffee</h1>
<p>Coffee beans roasted every morning. Coffee subscriptions for every taste.</p>
<a href="/ok">ok</a><a href="/gone">gone</a>
</body></html>`

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(testPage))
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// writeConfig isolates a run from the developer's config and .env files
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	path := filepath.Join(dir, "config.yml")
	body := "cache:\n  backend: none\nstats:\n  data_dir: " + filepath.Join(dir, "data") + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseRanks(t *testing.T) {
	ranks, err := parseRanks([]string{"seo tools=4", " audit = 12", "a=b=3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"seo tools": 4, "audit": 12, "a=b": 3}, ranks)

	for _, bad := range []string{"noequals", "=3", "kw=first"} {
		_, err := parseRanks([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestAuditCommand_JSON(t *testing.T) {
	srv := newTestSite(t)
	out, err := run(t, "--config", writeConfig(t), "audit", srv.URL+"/", "--keywords", "--format", "json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, srv.URL+"/", got["url"])
	assert.Contains(t, got, "score")
	assert.NotEmpty(t, got["keywords"])
}

func TestAuditCommand_WritesFile(t *testing.T) {
	srv := newTestSite(t)
	dest := filepath.Join(t.TempDir(), "report.csv")
	_, err := run(t, "--config", writeConfig(t), "audit", srv.URL+"/", "-f", "csv", "-o", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Rule,Severity,Category,Message,Suggestion")
}

func TestAuditCommand_RejectsXLSXToStdout(t *testing.T) {
	_, err := run(t, "--config", writeConfig(t), "audit", "https://example.com", "-f", "xlsx")
	assert.ErrorContains(t, err, "--output")
}

func TestAuditCommand_UnknownFormat(t *testing.T) {
	_, err := run(t, "--config", writeConfig(t), "audit", "https://example.com", "-f", "pdf")
	assert.Error(t, err)
}

func TestLinksCommand(t *testing.T) {
	srv := newTestSite(t)
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "links", srv.URL+"/", "--json")
	require.NoError(t, err)
	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, true, results[0]["isWorking"])
	assert.Equal(t, false, results[1]["isWorking"])

	_, err = run(t, "--config", cfg, "links", srv.URL+"/", "--json", "--fail-on-broken")
	assert.ErrorContains(t, err, "broken links")
}

func TestMissingConfigFile(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "nope.yml"), "audit", "https://example.com")
	assert.ErrorContains(t, err, "load config")
}

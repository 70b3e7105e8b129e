package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/dsneditor/internal/dsnstore"
	"github.com/koustreak/dsneditor/internal/editor"
	"github.com/koustreak/dsneditor/internal/errs"
)

type env struct {
	config    string
	templates string
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	templates := filepath.Join(dir, "templates")
	require.NoError(t, os.MkdirAll(filepath.Join(templates, "dsn-templates"), 0o755))

	config := filepath.Join(dir, "dsnedit.yaml")
	body := fmt.Sprintf(`logging:
  level: error
store:
  path: %s
templates:
  provider: dir
  root: %s
`, filepath.Join(dir, "odbc.ini"), templates)
	require.NoError(t, os.WriteFile(config, []byte(body), 0o600))
	return &env{config: config, templates: templates}
}

func (e *env) template(t *testing.T, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.templates, "dsn-templates", name+".dsn"), []byte(body), 0o600))
}

// run executes dsnedit with args and returns stdout.
func (e *env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", e.config}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSaveAndList(t *testing.T) {
	e := setupEnv(t)

	out, err := e.run(t, "s3cret\n", "save", "dsn=local;hostname=localhost;uid=elastic", "--ask-password")
	require.NoError(t, err)
	assert.Equal(t, "Saved DSN \"local\"\n", out)

	out, err = e.run(t, "", "dsn", "list", "-o", "json")
	require.NoError(t, err)
	var entries []dsnstore.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "local", entries[0].Name)
	assert.Contains(t, entries[0].ConnectionString, "pwd=********")
	assert.NotContains(t, entries[0].ConnectionString, "s3cret")

	out, err = e.run(t, "", "dsn", "get", "LOCAL", "--show-secrets")
	require.NoError(t, err)
	assert.Contains(t, out, "pwd=s3cret")

	out, err = e.run(t, "", "dsn", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "local")
}

func TestSave_Overwrite(t *testing.T) {
	e := setupEnv(t)
	_, err := e.run(t, "", "save", "dsn=local;hostname=localhost")
	require.NoError(t, err)

	// stdin is not a terminal, so nobody can confirm
	_, err = e.run(t, "", "save", "--dsn", "local", "--set", "port=9201")
	require.Error(t, err)
	assert.True(t, errs.IsAlreadyExists(err))

	_, err = e.run(t, "", "save", "--dsn", "local", "--set", "port=9201", "--yes")
	require.NoError(t, err)

	out, err := e.run(t, "", "dsn", "get", "local")
	require.NoError(t, err)
	assert.Contains(t, out, "port=9201")
}

func TestSave_Rejected(t *testing.T) {
	e := setupEnv(t)

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"bad assignment", []string{"save", "dsn=x;hostname=h", "--set", "port"}, "--set wants key=value"},
		{"no name", []string{"save", "hostname=localhost"}, "nothing to save"},
		{"invalid name", []string{"save", "dsn=a[b];hostname=localhost"}, "cannot contain [ or ]"},
		{"malformed", []string{"save", "dsn={broken"}, ""},
		{"two sources", []string{"save", "dsn=x", "--dsn", "y"}, "not several"},
		{"unknown stored dsn", []string{"save", "--dsn", "nope"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.run(t, "", tt.args...)
			require.Error(t, err)
			if tt.msg != "" {
				assert.Contains(t, errs.Message(err), tt.msg)
			}
		})
	}
}

func TestTest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cluster_name":"docker-cluster","version":{"number":"8.13.0"}}`))
	}))
	defer srv.Close()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	e := setupEnv(t)
	connStr := fmt.Sprintf("hostname=%s;port=%s;secure=0", u.Hostname(), u.Port())

	out, err := e.run(t, "", "test", connStr)
	require.NoError(t, err)
	assert.Contains(t, out, editor.MsgConnectionSuccess)

	_, err = e.run(t, "", "test", "uid=elastic")
	require.Error(t, err)
	assert.Contains(t, errs.Message(err), "nothing to test")
}

func TestShow_Template(t *testing.T) {
	e := setupEnv(t)
	e.template(t, "cloud", "# shared cloud profile\ncloudid=prod:abc=\nuid=elastic\npwd=hidden;\n")

	out, err := e.run(t, "", "show", "--template", "cloud", "-o", "json")
	require.NoError(t, err)
	var p map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "prod:abc=", p["cloud_id"])
	assert.Equal(t, "elastic", p["username"])
	assert.Equal(t, "********", p["password"])

	out, err = e.run(t, "", "show", "--template", "cloud")
	require.NoError(t, err)
	assert.Contains(t, out, "KEYWORD")
	assert.Contains(t, out, "cloudid")
}

func TestTemplatesList(t *testing.T) {
	e := setupEnv(t)
	e.template(t, "local", "hostname=localhost")

	out, err := e.run(t, "", "templates", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "local")
}

func TestDSNDelete(t *testing.T) {
	e := setupEnv(t)
	_, err := e.run(t, "", "save", "dsn=gone;hostname=localhost")
	require.NoError(t, err)

	out, err := e.run(t, "", "dsn", "delete", "gone")
	require.NoError(t, err)
	assert.Equal(t, "Deleted DSN \"gone\"\n", out)

	_, err = e.run(t, "", "dsn", "delete", "gone")
	assert.True(t, errs.IsNotFound(err))
}

func TestInstallerPlan(t *testing.T) {
	e := setupEnv(t)
	builds := t.TempDir()
	dir := filepath.Join(builds, "esodbc-8.13.0-windows-x86_64")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, f := range []string{"esodbcu8w.dll", "LICENSE.rtf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644))
	}

	out, err := e.run(t, "", "installer", "plan", "8.13.0-windows-x86_64", builds, "esodbc-8.13.0-windows-x86_64.zip")
	require.NoError(t, err)
	assert.Contains(t, out, "8.13.0.0")
	assert.Contains(t, out, "esodbcu8w.dll")

	out, err = e.run(t, "", "installer", "plan", "8.13.0-windows-x86", builds, "esodbc-8.13.0-windows-x86_64.zip", "--arch", "x86", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "platform: x86")

	_, err = e.run(t, "", "installer", "plan", "8.13.0", builds, "x.zip", "--arch", "arm")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestVersionAndOutput(t *testing.T) {
	e := setupEnv(t)

	out, err := e.run(t, "", "version", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"go_version"`)

	_, err = e.run(t, "", "version", "-o", "xml")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestLineDialog(t *testing.T) {
	var out bytes.Buffer

	d := newLineDialog(strings.NewReader(""), &out, true)
	assert.True(t, d.Confirm(editor.MsgOverwrite))

	d = newLineDialog(strings.NewReader("y\n"), &out, false)
	assert.False(t, d.Confirm(editor.MsgOverwrite), "non-terminal input is never asked")

	tests := []struct {
		answer string
		want   bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		d := newLineDialog(strings.NewReader(tt.answer), &out, false)
		d.interactive = true
		assert.Equal(t, tt.want, d.Confirm("continue?"), "answer %q", tt.answer)
	}

	out.Reset()
	d.Notify(editor.SeverityError, "Saving the DSN failed")
	assert.Contains(t, out.String(), "Saving the DSN failed")
}

func TestPromptSecret_Piped(t *testing.T) {
	var out bytes.Buffer
	secret, err := promptSecret(strings.NewReader("p@ss word\r\n"), &out, "Password: ")
	require.NoError(t, err)
	assert.Equal(t, "p@ss word", secret)
	assert.Equal(t, "Password: ", out.String())
}

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/rsg-workblocks/internal/submit"
)

// fakeServer mimics the RSG-Admin endpoints used by the CLI.
type fakeServer struct {
	mu         sync.Mutex
	token      string
	projects   map[string]int
	workblocks []map[string]any
	posts      []url.Values
	logins     int
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	fs := &fakeServer{
		token:    "abc123",
		projects: map[string]int{"alpha": 1, "beta": 2},
	}
	srv := httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (fs *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if r.URL.Path == "/api/get-token/" {
		fs.logins++
		_ = r.ParseForm()
		if r.PostForm.Get("username") != "jdoe" || r.PostForm.Get("password") != "s3cret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"non_field_errors": ["Unable to log in with provided credentials."]}`))
			return
		}
		writeJSON(w, map[string]string{"token": fs.token})
		return
	}

	if r.Header.Get("Authorization") != "Token "+fs.token {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "Invalid token."}`))
		return
	}

	q := r.URL.Query()
	switch {
	case r.URL.Path == "/api/rses/":
		if q.Get("ldap_dn") == "jdoe" {
			writeJSON(w, []map[string]any{{"pk": 7, "ldap_dn": "jdoe"}})
			return
		}
		writeJSON(w, []any{})
	case r.URL.Path == "/api/projects/":
		if pk, ok := fs.projects[q.Get("slug")]; ok {
			writeJSON(w, []map[string]any{{"pk": pk, "slug": q.Get("slug")}})
			return
		}
		writeJSON(w, []any{})
	case r.URL.Path == "/api/workblocks/" && r.Method == http.MethodGet:
		out := []map[string]any{}
		for _, wb := range fs.workblocks {
			if wb["start_date"].(string) >= q.Get("start_date") && wb["end_date"].(string) <= q.Get("end_date") {
				out = append(out, wb)
			}
		}
		writeJSON(w, out)
	case r.URL.Path == "/api/workblocks/" && r.Method == http.MethodPost:
		_ = r.ParseForm()
		fs.posts = append(fs.posts, r.PostForm)
		wb := map[string]any{"pk": 100 + len(fs.posts)}
		for k := range r.PostForm {
			wb[k] = r.PostForm.Get(k)
		}
		fs.workblocks = append(fs.workblocks, wb)
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, wb)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// runCLI executes the root command in a scratch directory.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeNote(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const scenarioNote = "---\ndate: 2024-01-05\nprojects:\n  alpha: 0.5\n  beta: 0.25\n---\n\nnotes\n"

func TestSubmitScenario(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	fs, srv := newFakeServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".token"), []byte("abc123"), 0o600))

	out, _, err := runCLI(t, "", "-r", "jdoe", "-f", writeNote(t, dir, scenarioNote), "-u", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Submitted 2 workblock(s) for 2024-01-05.")

	require.Len(t, fs.posts, 2)
	assert.Equal(t, url.Values{
		"project": {"1"}, "rse": {"7"},
		"start_date": {"2024-01-05"}, "end_date": {"2024-01-05"},
		"effort_rate": {"0.5"}, "type": {"EXPENDED"},
	}, fs.posts[0])
	assert.Equal(t, "2", fs.posts[1].Get("project"))
	assert.Equal(t, "0.25", fs.posts[1].Get("effort_rate"))
	assert.Zero(t, fs.logins)
}

func TestSubmitFirstRunLogsIn(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	fs, srv := newFakeServer(t)
	tokenFile := filepath.Join(dir, "auth", "token")

	_, stderr, err := runCLI(t, "\ns3cret\n",
		"-r", "jdoe", "-f", writeNote(t, dir, scenarioNote), "-u", srv.URL, "--token-file", tokenFile)
	require.NoError(t, err)
	assert.Equal(t, 1, fs.logins)
	assert.Contains(t, stderr, "Username [jdoe]: ")

	info, err := os.Stat(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	data, err := os.ReadFile(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "abc123", string(data))
}

func TestSubmitBadPassword(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	fs, srv := newFakeServer(t)

	_, _, err := runCLI(t, "jdoe\nwrong\n", "-r", "jdoe", "-f", writeNote(t, dir, scenarioNote), "-u", srv.URL)
	require.ErrorIs(t, err, submit.ErrAuthentication)
	assert.Empty(t, fs.posts)
	_, statErr := os.Stat(filepath.Join(dir, ".token"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSubmitDuplicateDay(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	fs, srv := newFakeServer(t)
	fs.workblocks = []map[string]any{{"pk": 50, "start_date": "2024-01-05", "end_date": "2024-01-05"}}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".token"), []byte("abc123"), 0o600))

	_, _, err := runCLI(t, "", "-r", "jdoe", "-f", writeNote(t, dir, scenarioNote), "-u", srv.URL)

	var dup *submit.DuplicateSubmissionError
	require.ErrorAs(t, err, &dup)
	assert.Empty(t, fs.posts)
}

func TestSubmitUnknownProject(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	fs, srv := newFakeServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".token"), []byte("abc123"), 0o600))

	path := writeNote(t, dir, "---\ndate: 2024-01-05\nprojects:\n  alpha: 0.5\n  gamma: 0.5\n---\n")
	_, _, err := runCLI(t, "", "-r", "jdoe", "-f", path, "-u", srv.URL)

	var pnf *submit.ProjectNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, "gamma", pnf.Slug)
	assert.Empty(t, fs.posts)
}

func TestExecutePrintsBareError(t *testing.T) {
	chdir(t, t.TempDir())

	var stderr bytes.Buffer
	err := execute(context.Background(), []string{"--bogus"}, &stderr)
	require.Error(t, err)
	assert.Equal(t, err.Error()+"\n", stderr.String())
}

func TestSubmitProjectLookupServerError(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/rses/":
			writeJSON(w, []map[string]any{{"pk": 7, "ldap_dn": "jdoe"}})
		case "/api/workblocks/":
			writeJSON(w, []map[string]any{})
		default:
			http.Error(w, "db down", http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".token"), []byte("abc123"), 0o600))

	_, _, err := runCLI(t, "", "-r", "jdoe", "-f", writeNote(t, dir, scenarioNote), "-u", srv.URL)
	require.Error(t, err)
	var pnf *submit.ProjectNotFoundError
	assert.False(t, errors.As(err, &pnf))
	assert.Contains(t, err.Error(), "db down")
}

func TestSubmitDryRun(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	fs, srv := newFakeServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".token"), []byte("abc123"), 0o600))

	out, _, err := runCLI(t, "", "-r", "jdoe", "-f", writeNote(t, dir, scenarioNote), "-u", srv.URL, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run: 2 workblock(s) for 2024-01-05")
	assert.Empty(t, fs.posts)
}

func TestSubmitRequiresFileAndRSE(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	_, _, err := runCLI(t, "", "-r", "jdoe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"file"`)

	_, _, err = runCLI(t, "", "-f", writeNote(t, dir, scenarioNote))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"rse"`)
}

func TestSubmitRSEFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	fs, srv := newFakeServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".token"), []byte("abc123"), 0o600))
	t.Setenv("WORKBLOCKS_RSE", "jdoe")
	t.Setenv("WORKBLOCKS_URL", srv.URL)

	_, _, err := runCLI(t, "", "-f", writeNote(t, dir, scenarioNote))
	require.NoError(t, err)
	assert.Len(t, fs.posts, 2)
}

func TestStatusAndList(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	fs, srv := newFakeServer(t)
	fs.workblocks = []map[string]any{
		{"pk": 50, "project": 1, "start_date": "2024-01-05", "end_date": "2024-01-05", "effort_rate": "0.50", "type": "EXPENDED"},
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".token"), []byte("abc123"), 0o600))

	out, _, err := runCLI(t, "", "status", "-r", "jdoe", "-u", srv.URL, "--date", "2024-01-05")
	require.NoError(t, err)
	assert.Contains(t, out, "Workblocks already submitted for 2024-01-05: 1.")

	out, _, err = runCLI(t, "", "status", "-r", "jdoe", "-u", srv.URL, "--date", "2024-01-06")
	require.NoError(t, err)
	assert.Contains(t, out, "No workblocks submitted for 2024-01-06.")

	out, _, err = runCLI(t, "", "list", "-r", "jdoe", "-u", srv.URL, "--from", "2024-01-01", "--to", "2024-01-07")
	require.NoError(t, err)
	assert.Contains(t, out, "START")
	assert.Contains(t, out, "0.50")

	_, _, err = runCLI(t, "", "list", "-r", "jdoe", "-u", srv.URL, "--from", "2024-01-07", "--to", "2024-01-01")
	require.Error(t, err)
}

func TestLoginAndLogout(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	fs, srv := newFakeServer(t)

	out, _, err := runCLI(t, "\ns3cret\n", "login", "-r", "jdoe", "-u", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as jdoe (rse 7)")
	assert.Equal(t, 1, fs.logins)

	// Cached token: no second prompt.
	_, _, err = runCLI(t, "", "login", "-r", "jdoe", "-u", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, fs.logins)

	out, _, err = runCLI(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed cached token .token.")
	_, statErr := os.Stat(filepath.Join(dir, ".token"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestStaleTokenSurfacesAsError(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	_, srv := newFakeServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".token"), []byte("expired"), 0o600))

	_, _, err := runCLI(t, "", "status", "-r", "jdoe", "-u", srv.URL, "--date", "2024-01-05")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/yacchi/assigner/config"
	"github.com/yacchi/assigner/format/yaml"
	"github.com/yacchi/assigner/mapdoc"
)

// syncBuffer is a bytes.Buffer safe for the concurrent writes of a
// watching command.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type result struct {
	out  string
	err  string
	code int
}

func fixedNow() time.Time {
	return time.Date(2024, time.September, 2, 10, 0, 0, 0, time.UTC)
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut syncBuffer
	app := NewApp("test")
	app.In = strings.NewReader(stdin)
	app.Out = &out
	app.Err = &errOut
	app.Now = fixedNow

	code := app.Execute(context.Background(), append([]string{"--log-format", "json"}, args...))
	return result{out: out.String(), err: errOut.String(), code: code}
}

func mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	r := run(t, stdin, args...)
	if r.code != 0 {
		t.Fatalf("assigner %v exited %d\nstdout: %s\nstderr: %s", args, r.code, r.out, r.err)
	}
	return r.out
}

func readConfig(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	doc, err := yaml.New().Get(data)
	if err != nil {
		t.Fatalf("failed to parse %s: %v", path, err)
	}
	return doc
}

const legacyConfig = `token: abc
gitlab-host: https://git.example.com
namespace: ns
semester: 2016-SP
roster: []
`

func writeLegacy(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "_config.yml")
	if err := os.WriteFile(path, []byte(legacyConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGuessSemester(t *testing.T) {
	tests := []struct {
		month time.Month
		want  string
	}{
		{time.January, "2024-SP"},
		{time.April, "2024-SP"},
		{time.May, "2024-SS"},
		{time.July, "2024-SS"},
		{time.August, "2024-FS"},
		{time.December, "2024-FS"},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			now := time.Date(2024, tt.month, 15, 0, 0, 0, 0, time.UTC)
			if got := guessSemester(now); got != tt.want {
				t.Errorf("guessSemester() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{in: "12", want: 12},
		{in: "2016-SP", want: "2016-SP"},
		{in: "true", want: true},
		{in: "", want: ""},
		{in: "[a, b]", want: []any{"a", "b"}},
		{in: "{unclosed", want: "{unclosed"},
	}
	for _, tt := range tests {
		got := mapdoc.NormalizeValue(parseValue(tt.in))
		if !mapdoc.Equal(map[string]any{"v": got}, map[string]any{"v": tt.want}) {
			t.Errorf("parseValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "_config.yml")
	answers := strings.Join([]string{
		"",         // GitLab server, default
		"secret",   // token
		"",         // semester, default
		"",         // namespace, default
		"y",        // configure Canvas
		"mst.instructure.com",
		"canvas-secret",
	}, "\n") + "\n"

	out := mustRun(t, answers, "--config", path, "init")
	if !strings.Contains(out, "(default: 2024-FS)") {
		t.Errorf("semester prompt missing guessed default:\n%s", out)
	}
	if !strings.Contains(out, "Congratulations, you're ready to go!") {
		t.Errorf("missing final message:\n%s", out)
	}

	want := map[string]any{
		"version": 2,
		"backend": map[string]any{
			"name":  "gitlab",
			"token": "secret",
			"host":  "https://gitlab.com",
		},
		"semester":     "2024-FS",
		"namespace":    "2024-FS-CS1001",
		"canvas-host":  "https://mst.instructure.com",
		"canvas-token": "canvas-secret",
		"roster":       []any{},
	}
	got := readConfig(t, path)
	if !mapdoc.Equal(got, want) {
		t.Errorf("config:\n got: %v\nwant: %v", got, want)
	}
	if err := config.Validate(got); err != nil {
		t.Errorf("initialized config is not valid: %v", err)
	}
}

func TestInit_RepromptsWithoutDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "_config.yml")
	out := mustRun(t, "git.example.com\n\n\ntoken\n\nteam\nn\n", "--config", path, "init")

	if n := strings.Count(out, "GitLab access token"); n != 3 {
		t.Errorf("token prompted %d times, want 3:\n%s", n, out)
	}
	got := readConfig(t, path)
	if got["namespace"] != "team" || got["backend"].(map[string]any)["host"] != "https://git.example.com" {
		t.Errorf("config = %v", got)
	}
	if _, ok := got["canvas-host"]; ok {
		t.Error("canvas configured although declined")
	}
}

func TestInit_EOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "_config.yml")
	r := run(t, "gitlab.com\n", "--config", path, "init")
	if r.code != 1 || !strings.Contains(r.err, "no answer") {
		t.Errorf("exit %d, stderr %q", r.code, r.err)
	}
}

func TestSetGet(t *testing.T) {
	path := writeLegacy(t)

	mustRun(t, "", "--config", path, "set", "namespace_id", "12")
	mustRun(t, "", "--config", path, "set", "--string", "course_name", "1001")
	mustRun(t, "", "--config", path, "set", "/backend/token", "rotated")

	got := readConfig(t, path)
	if got["namespace-id"] != 12 {
		t.Errorf("namespace-id = %#v, want 12", got["namespace-id"])
	}
	if got["course-name"] != "1001" {
		t.Errorf("course-name = %#v, want string 1001", got["course-name"])
	}
	if got["version"] != 2 {
		t.Errorf("legacy config was not upgraded: %v", got)
	}

	if out := mustRun(t, "", "--config", path, "get", "namespace-id"); out != "12\n" {
		t.Errorf("get namespace-id = %q", out)
	}
	out := mustRun(t, "", "--config", path, "get", "backend")
	if !strings.Contains(out, "token: rotated") || !strings.Contains(out, "name: gitlab") {
		t.Errorf("get backend = %q", out)
	}

	r := run(t, "", "--config", path, "get", "canvas_host")
	if r.code != 1 || !strings.Contains(r.err, "error: canvas_host is not set") {
		t.Errorf("get missing: exit %d, stderr %q", r.code, r.err)
	}
}

func TestRosterCommands(t *testing.T) {
	path := writeLegacy(t)

	mustRun(t, "", "--config", path, "roster", "add", "Ada Lovelace", "ada", "A")
	mustRun(t, "", "--config", path, "roster", "add", "Alan Turing", "turing.a", "B")

	r := run(t, "", "--config", path, "roster", "add", "Ada Again", "ada", "B")
	if r.code != 0 || !strings.Contains(r.err, "Student already exists in roster!") {
		t.Errorf("duplicate add: exit %d, stderr %q", r.code, r.err)
	}

	out := mustRun(t, "", "--config", path, "roster", "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("roster list:\n%s", out)
	}
	if fields := strings.Fields(lines[0]); strings.Join(fields, " ") != "# Name Username Section" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Ada Lovelace") || !strings.Contains(lines[2], "turing.a") {
		t.Errorf("rows:\n%s", out)
	}

	out = mustRun(t, "", "--config", path, "roster", "list", "--section", "B")
	if strings.Contains(out, "ada") || !strings.Contains(out, "turing.a") {
		t.Errorf("section filter:\n%s", out)
	}

	r = run(t, "", "--config", path, "roster", "list", "--section", "Z")
	if r.code != 0 || !strings.Contains(r.err, "No students in section") || !strings.Contains(r.err, `"sections":["A","B"]`) {
		t.Errorf("unknown section: exit %d, stderr %q", r.code, r.err)
	}

	mustRun(t, "", "--config", path, "roster", "add", "--force", "Ada Again", "ada", "B")
	r = run(t, "", "--config", path, "roster", "remove", "ada")
	if r.code != 0 || !strings.Contains(r.err, "Removed 2 entries from the roster") {
		t.Errorf("remove: exit %d, stderr %q", r.code, r.err)
	}

	roster := readConfig(t, path)["roster"].([]any)
	if len(roster) != 1 || roster[0].(map[string]any)["username"] != "turing.a" {
		t.Errorf("roster = %v", roster)
	}
}

func TestRosterAdd_RosterNotList(t *testing.T) {
	path := writeLegacy(t)
	mustRun(t, "", "--config", path, "set", "roster", "{alice: {name: A}}")

	r := run(t, "", "--config", path, "roster", "add", "Bob", "b", "A")
	if r.code != 1 || !strings.Contains(r.err, "roster is not a list") {
		t.Errorf("add: exit %d, stderr %q", r.code, r.err)
	}
	got := readConfig(t, path)["roster"]
	if _, ok := got.(map[string]any)["alice"]; !ok {
		t.Errorf("roster = %v, want the mapping kept", got)
	}
}

func TestImport(t *testing.T) {
	path := writeLegacy(t)
	mustRun(t, "", "--config", path, "roster", "add", "Ada Lovelace", "ada", "A")

	csvPath := filepath.Join(t.TempDir(), "class.csv")
	csvData := "ID,Term,Class,Name,Email\n" +
		"1,2016SP,1001,Ada Lovelace,ada@mst.edu\n" +
		"2,2016SP,1001,Alan Turing,turing.a@mst.edu\n" +
		"3,2016SP,1001,Grace Hopper,ghopper@mst.edu\n"
	if err := os.WriteFile(csvPath, []byte(csvData), 0o644); err != nil {
		t.Fatal(err)
	}

	r := run(t, "", "--config", path, "import", csvPath, "C")
	if r.code != 0 {
		t.Fatalf("import exited %d: %s", r.code, r.err)
	}
	if !strings.Contains(r.out, "Imported 2 students.") {
		t.Errorf("stdout = %q", r.out)
	}
	if !strings.Contains(r.err, "User ada is already in the roster, skipping") {
		t.Errorf("stderr = %q", r.err)
	}

	doc := readConfig(t, path)
	if n := len(doc["roster"].([]any)); n != 3 {
		t.Errorf("roster has %d entries, want 3", n)
	}
	if err := config.Validate(doc); err != nil {
		t.Errorf("config after import is not valid: %v", err)
	}

	if r := run(t, "", "--config", path, "import", filepath.Join(t.TempDir(), "missing.csv"), "C"); r.code != 1 {
		t.Errorf("import of missing file exited %d", r.code)
	}
}

func TestConfigShowAndVersion(t *testing.T) {
	path := writeLegacy(t)

	out := mustRun(t, "", "--config", path, "config", "version")
	if out != "configuration version 2 (latest 2)\n" {
		t.Errorf("config version = %q", out)
	}

	out = mustRun(t, "", "--config", path, "config", "show", "--show-secrets")
	doc, err := yaml.New().Get([]byte(out))
	if err != nil {
		t.Fatalf("config show output is not YAML: %v\n%s", err, out)
	}
	if !mapdoc.Equal(doc, readConfig(t, path)) {
		t.Errorf("config show differs from saved file:\n%s", out)
	}

	out = mustRun(t, "", "--config", path, "config", "show")
	if strings.Contains(out, "abc") || !strings.Contains(out, config.DefaultMaskString) {
		t.Errorf("token not masked:\n%s", out)
	}
	if readConfig(t, path)["backend"].(map[string]any)["token"] != "abc" {
		t.Error("masking leaked into the saved file")
	}
}

func TestConfigSchema(t *testing.T) {
	out := mustRun(t, "", "config", "schema", "--version", "0")
	var s map[string]any
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if s["$id"] != "urn:assigner:config:v0" {
		t.Errorf("$id = %v", s["$id"])
	}

	out = mustRun(t, "", "config", "schema")
	if !strings.Contains(out, "urn:assigner:config:v2") || !strings.Contains(out, `"oneOf"`) {
		t.Errorf("latest schema:\n%s", out)
	}

	if r := run(t, "", "config", "schema", "--version", "7"); r.code != 1 {
		t.Errorf("unknown version exited %d", r.code)
	}
}

func TestConfigCheck(t *testing.T) {
	path := writeLegacy(t)
	before, _ := os.ReadFile(path)

	out := mustRun(t, "", "--config", path, "config", "check")
	if !strings.Contains(out, "valid") || strings.Contains(out, "invalid") {
		t.Errorf("check = %q", out)
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("config check modified the file")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"version": 2, "backend": {"name": "mock", "token": "x"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	r := run(t, "", "--config", bad, "config", "check")
	if r.code != 1 || !strings.Contains(r.out, "/backend/token") {
		t.Errorf("check invalid: exit %d\nstdout: %s\nstderr: %s", r.code, r.out, r.err)
	}

	r = run(t, legacyConfig, "--config", "-", "config", "check")
	if r.code != 0 || r.out != "-: valid\n" {
		t.Errorf("check stdin: exit %d\nstdout: %s\nstderr: %s", r.code, r.out, r.err)
	}
	if r := run(t, legacyConfig, "--config", "-", "config", "check", "--watch"); r.code != 1 {
		t.Errorf("watching stdin exited %d", r.code)
	}
}

func TestConfigCheck_ExtraSchema(t *testing.T) {
	path := writeLegacy(t)
	dir := t.TempDir()

	strict := filepath.Join(dir, "strict.json")
	if err := os.WriteFile(strict, []byte(`{"type": "object", "required": ["canvas-host"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	r := run(t, "", "--config", path, "config", "check", "--schema", strict)
	if r.code != 1 || !strings.Contains(r.out, "/canvas-host: required field is missing") {
		t.Errorf("check --schema: exit %d\nstdout: %s\nstderr: %s", r.code, r.out, r.err)
	}

	mustRun(t, "", "--config", path, "set", "canvas_host", "https://mst.instructure.com")
	if out := mustRun(t, "", "--config", path, "config", "check", "--schema", strict); !strings.HasSuffix(out, ": valid\n") {
		t.Errorf("check --schema after set = %q", out)
	}

	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte(`{"type": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := run(t, "", "--config", path, "config", "check", "--schema", broken); r.code != 1 || !strings.Contains(r.err, "broken.json") {
		t.Errorf("broken schema: exit %d, stderr %q", r.code, r.err)
	}
	if r := run(t, "", "--config", path, "config", "check", "--schema", filepath.Join(dir, "missing.json")); r.code != 1 {
		t.Errorf("missing schema exited %d", r.code)
	}
}

func TestConfigCheck_Watch(t *testing.T) {
	path := writeLegacy(t)

	var out, errOut syncBuffer
	app := NewApp("test")
	app.Out, app.Err, app.In = &out, &errOut, strings.NewReader("")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan int, 1)
	go func() {
		done <- app.Execute(ctx, []string{"--config", path, "--log-format", "json", "config", "check", "--watch", "--interval", "50ms"})
	}()

	waitFor := func(substr string) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for !strings.Contains(out.String(), substr) {
			if time.Now().After(deadline) {
				t.Fatalf("timed out waiting for %q\nstdout: %s\nstderr: %s", substr, out.String(), errOut.String())
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	waitFor(": valid")
	if err := os.WriteFile(path, []byte("version: 2\nbackend: {name: mock, token: x}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(": invalid")

	cancel()
	select {
	case code := <-done:
		if code != 0 {
			t.Errorf("exit code = %d\nstderr: %s", code, errOut.String())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestGlobalFlags(t *testing.T) {
	if r := run(t, "", "--verbosity", "loud", "config", "schema"); r.code != 1 || !strings.Contains(r.err, "unknown log level") {
		t.Errorf("bad verbosity: exit %d, stderr %q", r.code, r.err)
	}
	if r := run(t, "", "--log-format", "xml", "config", "schema"); r.code != 1 {
		t.Errorf("bad log format exited %d", r.code)
	}

	r := run(t, "", "--verbosity", "debug", "--config", writeLegacy(t), "config", "version")
	if r.code != 0 || !strings.Contains(r.err, "configuration upgraded") {
		t.Errorf("debug logging: exit %d, stderr %q", r.code, r.err)
	}
}

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yacchi/assigner/document"
	"github.com/yacchi/assigner/format/json"
	"github.com/yacchi/assigner/format/yaml"
	"github.com/yacchi/assigner/mapdoc"
	"github.com/yacchi/assigner/source"
	awssource "github.com/yacchi/assigner/source/aws"
	"github.com/yacchi/assigner/source/bytes"
	"github.com/yacchi/assigner/source/fs"
)

// memSource keeps the document in memory.
type memSource struct {
	data    []byte
	exists  bool
	loadErr error
	saveErr error
	saves   int
}

func (s *memSource) Load(ctx context.Context) ([]byte, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if !s.exists {
		return nil, &source.NotExistError{Location: "mem"}
	}
	return s.data, nil
}

func (s *memSource) Save(ctx context.Context, fn source.UpdateFunc) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	out, err := fn(s.data)
	if err != nil {
		return err
	}
	s.data, s.exists = out, true
	s.saves++
	return nil
}

func (s *memSource) CanSave() bool    { return true }
func (s *memSource) Location() string { return "mem.json" }

func observed() (Option, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return WithLogger(zap.New(core)), logs
}

func warnings(logs *observer.ObservedLogs) []string {
	var msgs []string
	for _, e := range logs.FilterLevelExact(zapcore.WarnLevel).All() {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

func TestOpen_MissingDocument(t *testing.T) {
	opt, logs := observed()
	c, err := Open(context.Background(), &memSource{}, json.New(), opt)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	want := emptyConfigs()[2]
	if !mapdoc.Equal(c.Data(), want) {
		t.Errorf("Data() = %v, want %v", c.Data(), want)
	}

	got := warnings(logs)
	wantWarnings := []string{"Your configuration is not valid", "Attempting to continue anyway..."}
	if strings.Join(got, "|") != strings.Join(wantWarnings, "|") {
		t.Errorf("warnings = %q, want %q", got, wantWarnings)
	}
}

func TestOpen_UpgradesLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "_config.yml")
	legacy := "token: abc\ngitlab-host: https://git.example.com\nnamespace: ns\nsemester: 2016-SP\nroster: []\n"
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	opt, logs := observed()
	c, err := Open(context.Background(), fs.New(path), yaml.New(), opt)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if c.Version() != 2 {
		t.Errorf("Version() = %d, want 2", c.Version())
	}
	if w := warnings(logs); len(w) != 0 {
		t.Errorf("unexpected warnings %q", w)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	if err := c.Save(context.Background()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	reopened, err := Open(context.Background(), fs.New(path), yaml.New(), opt)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if !mapdoc.Equal(reopened.Data(), c.Data()) {
		t.Errorf("round trip mismatch:\n got: %v\nwant: %v", reopened.Data(), c.Data())
	}
	if logs.FilterMessage("configuration upgraded").Len() != 1 {
		t.Error("reopening an upgraded file should not upgrade again")
	}
}

func TestOpen_TooNew(t *testing.T) {
	src := &memSource{data: []byte(`{"version": 3, "backend": {"name": "warp"}}`), exists: true}
	opt, logs := observed()

	c, err := Open(context.Background(), src, json.New(), opt)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if c.Version() != 3 {
		t.Errorf("Version() = %d, want 3", c.Version())
	}

	got := warnings(logs)
	for _, want := range []string{
		"Your configuration is not valid",
		"Is your installation of assigner up to date?",
		"Attempting to continue anyway...",
	} {
		found := false
		for _, msg := range got {
			if msg == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing warning %q in %q", want, got)
		}
	}
}

func TestOpen_ExplicitLegacyVersion(t *testing.T) {
	opt, logs := observed()
	src := bytes.FromString("version: 0\ntoken: abc\ngitlab-host: h\nnamespace: ns\nsemester: 2016-SP\n", "-")

	c, err := Open(context.Background(), src, yaml.New(), opt)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if c.Version() != 0 || c.GetString("token") != "abc" {
		t.Errorf("document was changed: %v", c.Data())
	}
	got := warnings(logs)
	if len(got) == 0 || got[len(got)-1] != "Attempting to continue anyway..." {
		t.Errorf("warnings = %q", got)
	}
}

func TestOpen_Errors(t *testing.T) {
	loadErr := errors.New("disk on fire")

	t.Run("load", func(t *testing.T) {
		opt, _ := observed()
		_, err := Open(context.Background(), &memSource{loadErr: loadErr}, json.New(), opt)
		if !errors.Is(err, loadErr) {
			t.Errorf("Open() error = %v, want %v", err, loadErr)
		}
	})

	t.Run("parse", func(t *testing.T) {
		opt, _ := observed()
		src := &memSource{data: []byte(`{"version": `), exists: true}
		_, err := Open(context.Background(), src, json.New(), opt)
		var parseErr *document.ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("Open() error = %v, want *document.ParseError", err)
		}
	})

	t.Run("upgrade", func(t *testing.T) {
		r := DefaultRegistry()
		r.Steps[0] = Step{From: 0, Description: "drop token", Apply: func(doc map[string]any) map[string]any {
			delete(doc, LegacyTokenField)
			return doc
		}}
		opt, _ := observed()
		src := &memSource{data: []byte(`{"token": "t", "gitlab-host": "h", "namespace": "n", "semester": "2016-SP"}`), exists: true}

		_, err := Open(context.Background(), src, json.New(), opt, WithRegistry(r))
		var upErr *UpgradeError
		if !errors.As(err, &upErr) {
			t.Fatalf("Open() error = %v, want *UpgradeError", err)
		}
		if upErr.From != 0 || upErr.To != 1 {
			t.Errorf("UpgradeError = %+v", upErr)
		}
	})
}

func TestUse_SavesOnEveryExit(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		src := &memSource{}
		opt, _ := observed()
		err := Use(ctx, src, json.New(), func(c *Config) error {
			return c.Set("namespace", "ns")
		}, opt)
		if err != nil {
			t.Fatalf("Use() error = %v", err)
		}
		if src.saves != 1 || !strings.Contains(string(src.data), `"namespace": "ns"`) {
			t.Errorf("saved %d times: %s", src.saves, src.data)
		}
	})

	t.Run("error", func(t *testing.T) {
		src := &memSource{}
		opt, _ := observed()
		fnErr := errors.New("backend unreachable")
		err := Use(ctx, src, json.New(), func(c *Config) error {
			_ = c.Set("namespace", "partial")
			return fnErr
		}, opt)
		if !errors.Is(err, fnErr) {
			t.Errorf("Use() error = %v, want %v", err, fnErr)
		}
		if src.saves != 1 || !strings.Contains(string(src.data), "partial") {
			t.Errorf("saved %d times: %s", src.saves, src.data)
		}
	})

	t.Run("panic", func(t *testing.T) {
		src := &memSource{}
		opt, _ := observed()
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("recovered %v, want boom", r)
			}
			if src.saves != 1 || !strings.Contains(string(src.data), "before-panic") {
				t.Errorf("saved %d times: %s", src.saves, src.data)
			}
		}()
		_ = Use(ctx, src, json.New(), func(c *Config) error {
			_ = c.Set("namespace", "before-panic")
			panic("boom")
		}, opt)
	})

	t.Run("cancelled context still saves", func(t *testing.T) {
		src := &memSource{}
		opt, _ := observed()
		cctx, cancel := context.WithCancel(ctx)
		err := Use(cctx, src, json.New(), func(c *Config) error {
			cancel()
			return nil
		}, opt)
		if err != nil {
			t.Fatalf("Use() error = %v", err)
		}
		if src.saves != 1 {
			t.Errorf("saves = %d, want 1", src.saves)
		}
	})
}

func TestUse_JoinsSaveError(t *testing.T) {
	saveErr := errors.New("bucket is read-only")
	fnErr := errors.New("command failed")
	src := &memSource{saveErr: saveErr}
	opt, _ := observed()

	err := Use(context.Background(), src, json.New(), func(*Config) error { return fnErr }, opt)
	if !errors.Is(err, fnErr) || !errors.Is(err, saveErr) {
		t.Errorf("Use() error = %v, want both %v and %v", err, fnErr, saveErr)
	}
}

func TestSave_NotSupported(t *testing.T) {
	opt, _ := observed()
	c, err := Open(context.Background(), bytes.FromString(`{"version": 2}`, "piped.json"), json.New(), opt)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Save(context.Background()); !errors.Is(err, source.ErrSaveNotSupported) {
		t.Errorf("Save() error = %v, want ErrSaveNotSupported", err)
	}
}

func TestSave_EncodeErrorWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "course.toml")
	opt, _ := observed()
	err := UseFile(context.Background(), path, func(c *Config) error {
		return c.Set("course_name", nil)
	}, opt)

	var unsupported *document.UnsupportedStructureError
	if !errors.As(err, &unsupported) {
		t.Fatalf("UseFile() error = %v, want *document.UnsupportedStructureError", err)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("file should not have been written: %v", statErr)
	}
}

func TestConfig_Keys(t *testing.T) {
	opt, _ := observed()
	c, err := Open(context.Background(), &memSource{}, json.New(), opt)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Set("canvas_host", "https://canvas.example.com"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok := c.Data()["canvas-host"]; !ok {
		t.Errorf("canvas_host was not stored as canvas-host: %v", c.Data())
	}
	if got := c.GetString("canvas-host"); got != "https://canvas.example.com" {
		t.Errorf("GetString(canvas-host) = %q", got)
	}

	if err := c.Set("/backend/token", "abc"); err != nil {
		t.Fatalf("Set(pointer) error = %v", err)
	}
	if got := c.GetString("/backend/token"); got != "abc" {
		t.Errorf("GetString(/backend/token) = %q", got)
	}

	if err := c.Set("namespace_id", int64(12)); err != nil {
		t.Fatal(err)
	}
	if v, _ := c.Get("namespace_id"); v != 12 {
		t.Errorf("namespace_id = %#v, want int 12", v)
	}

	if !c.Delete("canvas_host") {
		t.Error("Delete(canvas_host) = false")
	}
	if _, ok := c.Get("canvas_host"); ok {
		t.Error("canvas_host still present")
	}
	if c.Delete("canvas_host") {
		t.Error("second Delete() = true")
	}

	if err := c.Set("/version/nested", 1); err == nil {
		t.Error("Set() through a scalar should fail")
	}
}

func TestConfig_RosterSynthesized(t *testing.T) {
	opt, _ := observed()
	c, err := Open(context.Background(), &memSource{}, json.New(), opt)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Data()["roster"]; ok {
		t.Fatal("roster present before access")
	}

	if got := c.Roster(); got == nil || len(got) != 0 {
		t.Errorf("Roster() = %#v, want empty slice", got)
	}
	if _, ok := c.Data()["roster"]; !ok {
		t.Error("Roster() did not store the empty roster")
	}
	if v, ok := c.Get("roster"); !ok || v == nil {
		t.Errorf("Get(roster) = %v, %v", v, ok)
	}
}

func TestResolve(t *testing.T) {
	src, doc, err := Resolve("s3://course-bucket/cs1001/_config.yml")
	if err != nil {
		t.Fatalf("Resolve(s3) error = %v", err)
	}
	s3src, ok := src.(*awssource.S3Source)
	if !ok {
		t.Fatalf("source = %T, want *aws.S3Source", src)
	}
	if s3src.Bucket() != "course-bucket" || s3src.Key() != "cs1001/_config.yml" {
		t.Errorf("bucket/key = %q/%q", s3src.Bucket(), s3src.Key())
	}
	if doc.Format() != document.FormatYAML {
		t.Errorf("format = %s, want yaml", doc.Format())
	}

	if _, _, err := Resolve("s3://only-bucket"); err == nil {
		t.Error("Resolve(s3 without key) expected error")
	}

	src, doc, err = Resolve("course.toml")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*fs.Source); !ok {
		t.Errorf("source = %T, want *fs.Source", src)
	}
	if doc.Format() != document.FormatTOML {
		t.Errorf("format = %s, want toml", doc.Format())
	}
}

func TestUseFile_Formats(t *testing.T) {
	for _, name := range []string{"_config.yml", "course.toml", "course.json", "course.jsonc"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			opt, _ := observed()

			err := UseFile(context.Background(), path, func(c *Config) error {
				if err := c.Set("namespace", "ns"); err != nil {
					return err
				}
				return c.Set("semester", "2024-FS")
			}, opt)
			if err != nil {
				t.Fatalf("UseFile() error = %v", err)
			}

			err = UseFile(context.Background(), path, func(c *Config) error {
				if got := c.GetString("semester"); got != "2024-FS" {
					t.Errorf("semester = %q", got)
				}
				if c.Version() != 2 {
					t.Errorf("Version() = %d", c.Version())
				}
				return nil
			}, opt)
			if err != nil {
				t.Fatalf("second UseFile() error = %v", err)
			}
		})
	}
}

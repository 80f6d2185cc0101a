// Package doctest provides a compliance suite for document.Document codecs.
//
// Every format package runs the suite against its codec so that all formats
// agree on the tree shape the configuration core relies on: empty input is an
// empty map, integers come back as int, and Marshal followed by Get is
// lossless for every configuration shape the tool writes.
//
//	func TestDocument_Compliance(t *testing.T) {
//	    doctest.NewDocumentTester(t, toml.New(),
//	        doctest.SkipNullTest("TOML has no null"),
//	    ).TestAll()
//	}
package doctest

import (
	"testing"

	"github.com/yacchi/assigner/document"
	"github.com/yacchi/assigner/mapdoc"
)

// DocumentTesterOption configures DocumentTester behavior.
type DocumentTesterOption func(*DocumentTester)

// SkipNullTest skips the null round-trip test for formats without null.
// The reason documents why the test is skipped.
func SkipNullTest(reason string) DocumentTesterOption {
	return func(dt *DocumentTester) {
		dt.skipNullReason = reason
	}
}

// DocumentTester runs the compliance suite against one codec.
type DocumentTester struct {
	t   *testing.T
	doc document.Document

	skipNullReason string
}

// NewDocumentTester creates a tester for doc.
func NewDocumentTester(t *testing.T, doc document.Document, opts ...DocumentTesterOption) *DocumentTester {
	dt := &DocumentTester{t: t, doc: doc}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// TestAll runs every compliance test as a subtest.
func (dt *DocumentTester) TestAll() {
	dt.t.Run("Format", dt.testFormat)
	dt.t.Run("EmptyInput", dt.testEmptyInput)
	dt.t.Run("RoundTrip", dt.testRoundTrip)
	dt.t.Run("IntegersNormalized", dt.testIntegersNormalized)
	dt.t.Run("Null", dt.testNull)
}

func (dt *DocumentTester) testFormat(t *testing.T) {
	require(t, dt.doc.Format() != "", "Format() returned empty string")
}

func (dt *DocumentTester) testEmptyInput(t *testing.T) {
	for _, input := range [][]byte{nil, []byte(""), []byte(" \n\t")} {
		got, err := dt.doc.Get(input)
		requireNoError(t, err, "Get(%q) error = %v", input, err)
		require(t, got != nil, "Get(%q) returned nil map", input)
		check(t, len(got) == 0, "Get(%q) = %v, want empty map", input, got)
	}
}

func (dt *DocumentTester) testRoundTrip(t *testing.T) {
	for name, tree := range roundTripCases() {
		t.Run(name, func(t *testing.T) {
			data, err := dt.doc.Marshal(mapdoc.DeepCopy(tree))
			requireNoError(t, err, "Marshal() error = %v", err)

			got, err := dt.doc.Get(data)
			requireNoError(t, err, "Get() error = %v\n%s", err, data)
			check(t, mapdoc.Equal(got, tree), "round trip mismatch:\n got: %#v\nwant: %#v\nbytes:\n%s", got, tree, data)
		})
	}
}

func (dt *DocumentTester) testIntegersNormalized(t *testing.T) {
	data, err := dt.doc.Marshal(map[string]any{"version": int64(2), "namespace-id": 41})
	requireNoError(t, err, "Marshal() error = %v", err)

	got, err := dt.doc.Get(data)
	requireNoError(t, err, "Get() error = %v", err)
	_, isInt := got["version"].(int)
	check(t, isInt, "version decoded as %T, want int", got["version"])
	_, isInt = got["namespace-id"].(int)
	check(t, isInt, "namespace-id decoded as %T, want int", got["namespace-id"])
}

func (dt *DocumentTester) testNull(t *testing.T) {
	if dt.skipNullReason != "" {
		tree := map[string]any{"course-name": nil}
		_, err := dt.doc.Marshal(tree)
		check(t, isUnsupportedError(err), "Marshal(null) error = %v, want UnsupportedStructureError", err)
		t.Skipf("null round trip: %s", dt.skipNullReason)
	}

	tree := map[string]any{"course-name": nil, "namespace": "ns"}
	data, err := dt.doc.Marshal(tree)
	requireNoError(t, err, "Marshal() error = %v", err)

	got, err := dt.doc.Get(data)
	requireNoError(t, err, "Get() error = %v", err)
	v, ok := got["course-name"]
	check(t, ok && v == nil, "course-name = %v (present %v), want nil", v, ok)
}

func roundTripCases() map[string]map[string]any {
	return map[string]map[string]any{
		"legacy": {
			"token":       "xxx gitlab token xxx",
			"gitlab-host": "https://git.gitlab.com",
			"namespace":   "assigner-testing",
			"semester":    "2016-SP",
			"roster":      []any{},
		},
		"current": {
			"version": 2,
			"backend": map[string]any{
				"name":  "gitlab",
				"token": "xxx gitlab token xxx",
				"host":  "https://git.gitlab.com",
			},
			"namespace":    "assigner-testing",
			"namespace-id": 12,
			"semester":     "2016-SP",
			"roster": []any{
				map[string]any{"name": "Ada Lovelace", "username": "ada", "section": "A", "id": 7},
				map[string]any{"name": "Alan Turing", "username": "turing.a", "section": "B", "canvas-id": 99},
			},
			"canvas-courses": []any{
				map[string]any{"section": "A", "id": 1234},
			},
		},
		"mock backend": {
			"version": 2,
			"backend": map[string]any{"name": "mock"},
		},
	}
}

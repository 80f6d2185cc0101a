package config

import (
	"fmt"

	"github.com/yacchi/assigner/schema"
)

const (
	semesterPattern = `^\d{4}-(SP|FS|SS)$`
	usernamePattern = `^[\w.\-]+$`
)

// BackendGitLab and BackendMock are the legal backend names.
const (
	BackendGitLab = "gitlab"
	BackendMock   = "mock"
)

func schemaID(version int) string {
	return fmt.Sprintf("urn:assigner:config:v%d", version)
}

func rosterSchema(canvasIDs bool) *schema.Schema {
	entry := schema.Object().
		Property("name", schema.String().Build()).
		Property("section", schema.String().Build()).
		Property("username", schema.String().Pattern(usernamePattern).Build()).
		Property("id", schema.Integer().Build())
	if canvasIDs {
		entry.Property("canvas-id", schema.Integer().Build())
	}
	return schema.Array(entry.Required("name", "username", "section").Closed().Build()).Build()
}

// legacySchema describes the flat GitLab-only layout. tokenField is "token"
// before the rename and "gitlab-token" after it.
func legacySchema(version int, tokenField string) *schema.Schema {
	return schema.Object().
		ID(schemaID(version)).
		Title(fmt.Sprintf("assigner configuration v%d", version)).
		Property(tokenField, schema.String().Build()).
		Property("gitlab-host", schema.String().Build()).
		Property("namespace", schema.String().Build()).
		Property("namespace-id", schema.Integer().Build()).
		Property("course-name", schema.String().Build()).
		Property("semester", schema.String().Pattern(semesterPattern).Build()).
		Property("roster", rosterSchema(false)).
		Property("canvas-token", schema.String().Build()).
		Property("canvas-host", schema.String().Build()).
		Required("gitlab-host", "namespace", tokenField, "semester").
		Closed().
		Build()
}

// V0 is the original layout, with the GitLab token stored under "token".
func V0() *schema.Schema {
	return legacySchema(0, LegacyTokenField)
}

// V1 renames the GitLab token to "gitlab-token".
func V1() *schema.Schema {
	return legacySchema(1, "gitlab-token")
}

// V2 records its version explicitly and moves the GitLab settings into a
// tagged backend object.
func V2() *schema.Schema {
	gitlab := schema.Object().
		Property("name", schema.String().Enum(BackendGitLab).Build()).
		Property("token", schema.String().Build()).
		Property("host", schema.String().Build()).
		Required("name", "token", "host").
		Closed().
		Build()
	mock := schema.Object().
		Property("name", schema.String().Enum(BackendMock).Build()).
		Required("name").
		Closed().
		Build()

	canvasCourse := schema.Object().
		Property("section", schema.String().Build()).
		Property("id", schema.Integer().Build()).
		Required("section").
		Closed().
		Build()

	return schema.Object().
		ID(schemaID(2)).
		Title("assigner configuration v2").
		Property(VersionField, schema.Integer().Build()).
		Property("backend", schema.Object().OneOf(gitlab, mock).Build()).
		Property("namespace", schema.String().Build()).
		Property("namespace-id", schema.Integer().Build()).
		Property("course-name", schema.String().Build()).
		Property("semester", schema.String().Pattern(semesterPattern).Build()).
		Property("roster", rosterSchema(true)).
		Property("canvas-token", schema.String().Build()).
		Property("canvas-host", schema.String().Build()).
		Property("canvas-courses", schema.Array(canvasCourse).Build()).
		Required(VersionField, "backend", "namespace", "semester").
		Closed().
		Build()
}

// Schemas returns a fresh copy of every known schema, indexed by version.
func Schemas() []*schema.Schema {
	return []*schema.Schema{V0(), V1(), V2()}
}

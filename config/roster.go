package config

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/yacchi/assigner/decoder"
	"github.com/yacchi/assigner/roster"
)

// Students decodes the roster.
func (c *Config) Students() ([]roster.Student, error) {
	entries, err := c.rosterEntries()
	if err != nil {
		return nil, err
	}
	var students []roster.Student
	if err := decoder.Value(entries, &students); err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	return students, nil
}

// rosterEntries is Roster, except that a roster of the wrong shape is an
// error instead of an empty list.
func (c *Config) rosterEntries() ([]any, error) {
	if v, ok := c.data["roster"]; ok && v != nil {
		if _, isList := v.([]any); !isList {
			return nil, ErrRosterNotList
		}
	}
	return c.Roster(), nil
}

// AddStudent appends s to the roster. Unless force is set, a student whose
// username is already present is rejected with *DuplicateUserError.
func (c *Config) AddStudent(s roster.Student, force bool) error {
	entries, err := c.rosterEntries()
	if err != nil {
		return err
	}
	if !force {
		students, err := c.Students()
		if err != nil {
			return err
		}
		if roster.Contains(students, s.Username) {
			return &DuplicateUserError{Username: s.Username}
		}
	}

	entry, err := decoder.Encode(s)
	if err != nil {
		return err
	}
	c.data["roster"] = append(entries, entry)
	return nil
}

// RemoveStudent drops every roster entry for username and returns how many
// were removed.
func (c *Config) RemoveStudent(username string) (int, error) {
	entries, err := c.rosterEntries()
	if err != nil {
		return 0, err
	}
	kept := make([]any, 0, len(entries))
	for _, entry := range entries {
		if m, ok := entry.(map[string]any); ok && m["username"] == username {
			continue
		}
		kept = append(kept, entry)
	}

	removed := len(entries) - len(kept)
	if removed > 0 {
		c.data["roster"] = kept
	}
	c.logger.Debug("removed students from roster", zap.String("username", username), zap.Int("count", removed))
	return removed, nil
}

// CanvasCourse maps a section to its LMS course.
type CanvasCourse struct {
	Section string `json:"section"`
	ID      int    `json:"id,omitempty"`
}

// CanvasCourses decodes the section to course mapping.
func (c *Config) CanvasCourses() ([]CanvasCourse, error) {
	var courses []CanvasCourse
	raw, ok := c.data["canvas-courses"]
	if !ok || raw == nil {
		return nil, nil
	}
	if err := decoder.Value(raw, &courses); err != nil {
		return nil, fmt.Errorf("failed to read canvas courses: %w", err)
	}
	return courses, nil
}

// SetCanvasCourse records id as the course of section, replacing an earlier
// entry for the same section.
func (c *Config) SetCanvasCourse(section string, id int) error {
	courses, err := c.CanvasCourses()
	if err != nil {
		return err
	}

	replaced := false
	for i := range courses {
		if courses[i].Section == section {
			courses[i].ID = id
			replaced = true
		}
	}
	if !replaced {
		courses = append(courses, CanvasCourse{Section: section, ID: id})
	}

	encoded, err := decoder.Encode(courses)
	if err != nil {
		return err
	}
	c.data["canvas-courses"] = encoded
	return nil
}

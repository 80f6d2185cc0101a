// Package roster holds the typed view of the students enrolled in a course.
package roster

import (
	"errors"
)

// ErrNoMatch is returned by Filter when no student matches.
var ErrNoMatch = errors.New("no matching students found in roster")

// Student is one roster entry.
type Student struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Section  string `json:"section"`

	// ID is the student's account id on the hosting backend.
	ID int `json:"id,omitempty"`

	// CanvasID is the student's id in the learning management system.
	CanvasID int `json:"canvas-id,omitempty"`
}

// Filter selects the students matching username, or section when username
// is empty. With both empty every student matches. An empty result is
// reported as ErrNoMatch.
func Filter(students []Student, section, username string) ([]Student, error) {
	var out []Student
	for _, s := range students {
		switch {
		case username != "":
			if s.Username != username {
				continue
			}
		case section != "":
			if s.Section != section {
				continue
			}
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, ErrNoMatch
	}
	return out, nil
}

// Contains reports whether a student with username is present.
func Contains(students []Student, username string) bool {
	for _, s := range students {
		if s.Username == username {
			return true
		}
	}
	return false
}

// Sections returns the distinct sections in roster order.
func Sections(students []Student) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range students {
		if !seen[s.Section] {
			seen[s.Section] = true
			out = append(out, s.Section)
		}
	}
	return out
}

package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// PeopleSoft class list export columns.
const (
	nameColumn  = 3
	emailColumn = 4
)

// ReadCSV reads a PeopleSoft class list export. The first row is a header.
// The name is taken from the fourth column and the username is the local
// part of the e-mail address in the fifth. Every student is placed in
// section.
func ReadCSV(r io.Reader, section string) ([]Student, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var students []Student
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if len(record) <= emailColumn {
			return nil, fmt.Errorf("line %d: expected at least %d columns, got %d", line, emailColumn+1, len(record))
		}

		username, _, _ := strings.Cut(strings.TrimSpace(record[emailColumn]), "@")
		if username == "" {
			return nil, fmt.Errorf("line %d: missing e-mail address", line)
		}

		students = append(students, Student{
			Name:     strings.TrimSpace(record[nameColumn]),
			Username: username,
			Section:  section,
		})
	}
	return students, nil
}

package batch

import (
	"bytes"
	"encoding/json"

	"github.com/starford/tagvault/internal/tagedit"
)

// FileError records why a file could not be processed.
type FileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Details maps files to their change records in the order the files were
// processed.
type Details struct {
	order  []string
	byFile map[string]tagedit.Changes
}

// Files returns the files with details, in processing order.
func (d *Details) Files() []string {
	if d == nil {
		return nil
	}
	return d.order
}

// Get returns the changes recorded for file.
func (d *Details) Get(file string) (tagedit.Changes, bool) {
	if d == nil {
		return tagedit.Changes{}, false
	}
	c, ok := d.byFile[file]
	return c, ok
}

// Len returns the number of files with details.
func (d *Details) Len() int {
	if d == nil {
		return 0
	}
	return len(d.order)
}

// MarshalJSON encodes details as an object whose keys keep processing order.
func (d *Details) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, file := range d.Files() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(file)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(d.byFile[file])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Report is the aggregate outcome of a batch. Success lists files that were
// rewritten; a file appears in Details whenever it produced change records,
// including preserved-only files that were not rewritten.
type Report struct {
	Success []string    `json:"success"`
	Errors  []FileError `json:"errors"`
	Details *Details    `json:"details"`
}

// Failed reports whether any file ended in error.
func (r *Report) Failed() bool { return len(r.Errors) > 0 }

// fileDelta is the outcome of one file.
type fileDelta struct {
	file    string
	written bool
	changes tagedit.Changes
	err     error
}

// fold assembles the report from per-file outcomes in order. A file that
// failed contributes only its error.
func fold(deltas []fileDelta) *Report {
	r := &Report{
		Success: []string{},
		Errors:  []FileError{},
		Details: &Details{byFile: make(map[string]tagedit.Changes)},
	}
	for _, d := range deltas {
		if d.err != nil {
			r.Errors = append(r.Errors, FileError{File: d.file, Error: d.err.Error()})
			continue
		}
		if d.written {
			r.Success = append(r.Success, d.file)
		}
		if d.changes.Empty() {
			continue
		}
		r.Details.order = append(r.Details.order, d.file)
		r.Details.byFile[d.file] = nonNil(d.changes)
	}
	return r
}

// nonNil makes both lists encode as [] rather than null.
func nonNil(c tagedit.Changes) tagedit.Changes {
	if c.Removed == nil {
		c.Removed = []tagedit.Change{}
	}
	if c.Preserved == nil {
		c.Preserved = []tagedit.Change{}
	}
	return c
}

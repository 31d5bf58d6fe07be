// Package batch applies one tag operation across many notes. Files are
// processed independently: a failure in one is recorded and the batch moves
// on to the next.
package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/tagvault/internal/apperr"
	"github.com/starford/tagvault/internal/note"
	"github.com/starford/tagvault/internal/tagedit"
)

// Vault is the subset of storage the coordinator needs.
type Vault interface {
	Resolve(path string) (string, error)
	Exists(path string) (bool, error)
	Read(path string) ([]byte, error)
	Write(path string, content []byte) error
}

// Coordinator runs jobs against a vault.
type Coordinator struct {
	vault  Vault
	logger *slog.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(vault Vault, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{vault: vault, logger: logger}
}

// Run processes the job's files in order and returns the aggregate report.
// Run never fails as a whole; a cancelled context marks the files not yet
// processed as errors.
func (c *Coordinator) Run(ctx context.Context, job Job) *Report {
	deltas := make([]fileDelta, 0, len(job.Files))
	for _, file := range job.Files {
		if err := ctx.Err(); err != nil {
			deltas = append(deltas, fileDelta{file: file, err: fmt.Errorf("batch: %s: %w", file, err)})
			continue
		}
		d := c.processFile(job, file)
		if d.err != nil {
			c.logger.Warn("batch: file failed", slog.String("file", file), slog.String("error", d.err.Error()))
		}
		deltas = append(deltas, d)
	}

	report := fold(deltas)
	c.logger.Info("batch: done",
		slog.String("operation", string(job.Operation)),
		slog.Int("files", len(job.Files)),
		slog.Int("written", len(report.Success)),
		slog.Int("errors", len(report.Errors)),
	)
	return report
}

func (c *Coordinator) processFile(job Job, file string) (d fileDelta) {
	d.file = file
	defer func() {
		if r := recover(); r != nil {
			d = fileDelta{file: file, err: fmt.Errorf("batch: %s: panic: %v", file, r)}
		}
	}()

	if _, err := c.vault.Resolve(file); err != nil {
		d.err = err
		return d
	}
	ok, err := c.vault.Exists(file)
	if err != nil {
		d.err = err
		return d
	}
	if !ok {
		d.err = fmt.Errorf("batch: %s: %w", file, apperr.ErrNotFound)
		return d
	}
	data, err := c.vault.Read(file)
	if err != nil {
		d.err = err
		return d
	}

	doc := note.Parse(string(data))
	updated, changes, err := Apply(job, doc)
	if err != nil {
		d.err = fmt.Errorf("batch: %s: %w", file, err)
		return d
	}
	d.changes = changes
	if updated.Equal(doc) {
		return d
	}

	out, err := updated.Serialize()
	if err != nil {
		d.err = fmt.Errorf("batch: %s: serialize: %w", file, err)
		return d
	}
	if err := c.vault.Write(file, []byte(out)); err != nil {
		d.err = err
		return d
	}
	c.logger.Debug("batch: wrote", slog.String("file", file))
	d.written = true
	return d
}

// Apply runs the job's operation on one parsed note and returns the edited
// document with its change records. The input document is not modified.
func Apply(job Job, doc note.Document) (note.Document, tagedit.Changes, error) {
	var changes tagedit.Changes
	switch job.Operation {
	case OperationAdd:
		if job.Location.Frontmatter() {
			md := doc.Metadata
			if !doc.HasMetadata {
				md = note.NewMetadata()
			}
			md, err := tagedit.AddFrontmatter(md, job.Tags, job.Normalize)
			if err != nil {
				return doc, changes, err
			}
			doc = doc.WithMetadata(md)
		}
		if job.Location.Content() {
			body, err := tagedit.AddInline(doc.Body, job.Tags, job.Normalize, job.Position)
			if err != nil {
				return doc, changes, err
			}
			doc = doc.WithBody(body)
		}
	case OperationRemove:
		sel := job.Selector()
		if job.Location.Frontmatter() && doc.HasMetadata {
			md, ch := tagedit.RemoveFrontmatter(doc.Metadata, sel)
			doc = doc.WithMetadata(md)
			changes = changes.Merge(ch)
		}
		if job.Location.Content() {
			body, ch := tagedit.RemoveInline(doc.Body, sel, doc.BodyLine())
			doc = doc.WithBody(body)
			changes = changes.Merge(ch)
		}
	default:
		return doc, changes, fmt.Errorf("%w: unknown operation %q", apperr.ErrInvalidInput, job.Operation)
	}
	return doc, changes, nil
}

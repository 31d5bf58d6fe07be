// Package noteservice is the application layer shared by the HTTP API and the
// MCP server. It runs tag operations, keeps the index current after writes
// and answers tag and note queries.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/tagvault/internal/apperr"
	"github.com/starford/tagvault/internal/batch"
	"github.com/starford/tagvault/internal/checksum"
	"github.com/starford/tagvault/internal/index"
	"github.com/starford/tagvault/internal/models"
	"github.com/starford/tagvault/internal/parser"
	"github.com/starford/tagvault/internal/sse"
	"github.com/starford/tagvault/internal/storage"
	"github.com/starford/tagvault/internal/tags"
)

// DefaultPageSize is used by ListNotes when the caller passes no limit.
const DefaultPageSize = 50

// Notifier receives an announcement after a tag operation rewrote files.
type Notifier interface {
	PublishTagged(id string, data sse.TaggedData)
}

// TagResult is the outcome of ManageTags.
type TagResult struct {
	OperationID string        `json:"operationId"`
	Report      *batch.Report `json:"report"`
	Summary     string        `json:"summary"`
}

// Service coordinates storage, the tag index and the batch coordinator.
type Service struct {
	store    storage.Provider
	db       index.TagIndex
	coord    *batch.Coordinator
	defaults batch.Defaults
	notifier Notifier
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithDefaults sets the option values applied to requests that omit them.
func WithDefaults(d batch.Defaults) Option {
	return func(s *Service) { s.defaults = d }
}

// WithNotifier publishes completed tag operations.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new note service.
func NewService(store storage.Provider, db index.TagIndex, opts ...Option) *Service {
	s := &Service{
		store:    store,
		db:       db,
		defaults: batch.StandardDefaults,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.coord = batch.NewCoordinator(store, s.logger)
	return s
}

// ManageTags validates req, applies it to every listed file and re-indexes
// the files that were rewritten. Only request validation fails the call;
// per-file problems are part of the report.
func (s *Service) ManageTags(ctx context.Context, req batch.Request) (*TagResult, error) {
	job, err := req.Compile(s.defaults)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s.logger.Info("tags: operation started",
		slog.String("operation_id", id),
		slog.String("operation", string(job.Operation)),
		slog.Int("files", len(job.Files)),
	)

	report := s.coord.Run(ctx, job)
	for _, f := range report.Success {
		if err := s.Reindex(f); err != nil {
			s.logger.Warn("tags: reindex failed", slog.String("path", f), slog.String("error", err.Error()))
		}
	}
	if s.notifier != nil && len(report.Success) > 0 {
		s.notifier.PublishTagged(id, sse.TaggedData{
			Operation: string(job.Operation),
			Tags:      job.Tags,
			Files:     report.Success,
		})
	}

	return &TagResult{
		OperationID: id,
		Report:      report,
		Summary:     batch.Summary(report, job.Operation),
	}, nil
}

// Reindex re-reads path and refreshes its index entry.
func (s *Service) Reindex(path string) error {
	data, err := s.store.Read(path)
	if err != nil {
		return err
	}
	return index.IndexFile(s.db, path, data)
}

// ListTags returns indexed tags with note counts. A non-empty pattern keeps
// only tags it matches.
func (s *Service) ListTags(_ context.Context, pattern string) ([]models.TagCount, error) {
	pattern = tags.Strip(pattern)
	if pattern != "" && !tags.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: invalid tag pattern %q", apperr.ErrInvalidInput, pattern)
	}
	all, err := s.db.AllTags()
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		return nonNilSlice(all), nil
	}
	out := []models.TagCount{}
	for _, tc := range all {
		if tags.Match(tc.Tag, pattern) {
			out = append(out, tc)
		}
	}
	return out, nil
}

// RelatedTags returns the indexed ancestors and descendants of tag.
func (s *Service) RelatedTags(_ context.Context, tag string) ([]models.TagCount, error) {
	tag = tags.Normalize(tag)
	if !tags.Validate(tag) {
		return nil, fmt.Errorf("%w: invalid tag %q", apperr.ErrInvalidInput, tag)
	}
	all, err := s.db.AllTags()
	if err != nil {
		return nil, err
	}
	universe := make([]string, len(all))
	counts := make(map[string]int, len(all))
	for i, tc := range all {
		universe[i] = tc.Tag
		counts[tc.Tag] = tc.Count
	}
	out := []models.TagCount{}
	for _, t := range tags.Related(tag, universe) {
		out = append(out, models.TagCount{Tag: t, Count: counts[t]})
	}
	return out, nil
}

// NotesByTag returns the notes carrying tag, and with descendants set, the
// notes carrying any tag below it.
func (s *Service) NotesByTag(_ context.Context, tag string, descendants bool) ([]string, error) {
	tag = tags.Normalize(tag)
	if !tags.Validate(tag) {
		return nil, fmt.Errorf("%w: invalid tag %q", apperr.ErrInvalidInput, tag)
	}
	paths, err := s.db.NotesWithTag(tag, descendants)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(paths), nil
}

// GetNote reads a note from storage with every tag occurrence it carries.
func (s *Service) GetNote(_ context.Context, path string) (*models.Note, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	res := parser.Parse(data)
	n := &models.Note{
		Path:        path,
		Title:       res.Title,
		Body:        res.Body,
		Frontmatter: res.Frontmatter,
		Tags:        nonNilSlice(res.Refs),
		Checksum:    checksum.Sum(data),
		UpdatedAt:   time.Now(),
	}
	if row, _, err := s.db.GetNote(path); err == nil {
		n.UpdatedAt = row.UpdatedAt
	}
	return n, nil
}

// ListNotes returns a page of indexed notes, optionally restricted to a tag
// and its descendants.
func (s *Service) ListNotes(_ context.Context, limit, offset int, tag string) ([]models.NoteMetadata, int, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	rows, total, err := s.db.ListNotes(limit, offset, tag)
	if err != nil {
		return nil, 0, err
	}
	items := make([]models.NoteMetadata, len(rows))
	for i, r := range rows {
		items[i] = models.NoteMetadata{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
			Tags:      nonNilSlice(r.Tags),
		}
	}
	return items, total, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

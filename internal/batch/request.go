package batch

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tagvault/internal/apperr"
	"github.com/starford/tagvault/internal/tagedit"
	"github.com/starford/tagvault/internal/tags"
)

// Operation is the kind of tag edit applied to every file of a batch.
type Operation string

// Operations.
const (
	OperationAdd    Operation = "add"
	OperationRemove Operation = "remove"
)

// Location selects which surfaces of a note an operation touches.
type Location string

// Locations.
const (
	LocationFrontmatter Location = "frontmatter"
	LocationContent     Location = "content"
	LocationBoth        Location = "both"
)

// Frontmatter reports whether the frontmatter tag list is in scope.
func (l Location) Frontmatter() bool {
	return l == LocationFrontmatter || l == LocationBoth
}

// Content reports whether inline body tags are in scope.
func (l Location) Content() bool {
	return l == LocationContent || l == LocationBoth
}

// Options is the optional part of a Request. Zero values fall back to
// Defaults.
type Options struct {
	Location         string   `json:"location,omitempty" yaml:"location"`
	Normalize        *bool    `json:"normalize,omitempty" yaml:"normalize"`
	Position         string   `json:"position,omitempty" yaml:"position"`
	PreserveChildren bool     `json:"preserveChildren,omitempty" yaml:"preserve_children"`
	Patterns         []string `json:"patterns,omitempty" yaml:"patterns"`
}

// Request is the caller-facing shape of a tag operation.
type Request struct {
	Files     []string `json:"files"`
	Operation string   `json:"operation"`
	Tags      []string `json:"tags"`
	Options   *Options `json:"options,omitempty"`
}

// Defaults supplies option values a Request leaves unset.
type Defaults struct {
	Location  Location
	Normalize bool
	Position  tagedit.Position
}

// StandardDefaults are used when no configuration overrides them.
var StandardDefaults = Defaults{
	Location:  LocationBoth,
	Normalize: true,
	Position:  tagedit.PositionEnd,
}

// Job is a validated request with every option resolved.
type Job struct {
	Files            []string
	Operation        Operation
	Tags             []string
	Location         Location
	Normalize        bool
	Position         tagedit.Position
	PreserveChildren bool
	Patterns         []string
}

// Selector returns the removal rule for this job.
func (j Job) Selector() tags.Selector {
	return tags.Selector{
		Targets:          j.Tags,
		Patterns:         j.Patterns,
		PreserveChildren: j.PreserveChildren,
		Normalize:        j.Normalize,
	}
}

func (r *Request) normalize(d Defaults) bool {
	if r.Options != nil && r.Options.Normalize != nil {
		return *r.Options.Normalize
	}
	return d.Normalize
}

// Validate checks the request shape and tag syntax. Tags are checked in the
// form they will be written: normalized when normalization is on.
func (r *Request) Validate(d Defaults) error {
	normalize := r.normalize(d)
	err := validation.ValidateStruct(r,
		validation.Field(&r.Files, validation.Required, validation.Each(validation.Required, validation.By(markdownFile))),
		validation.Field(&r.Operation, validation.Required, validation.In(string(OperationAdd), string(OperationRemove))),
		validation.Field(&r.Tags, validation.Required, validation.Each(validation.Required, validation.By(tagSyntax(normalize)))),
		validation.Field(&r.Options),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

// Validate checks option enums and pattern syntax.
func (o *Options) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.Location, validation.In(string(LocationFrontmatter), string(LocationContent), string(LocationBoth))),
		validation.Field(&o.Position, validation.In(string(tagedit.PositionStart), string(tagedit.PositionEnd))),
		validation.Field(&o.Patterns, validation.Each(validation.Required, validation.By(patternSyntax))),
	)
}

// Compile validates r and resolves it into a Job.
func (r *Request) Compile(d Defaults) (Job, error) {
	if err := r.Validate(d); err != nil {
		return Job{}, err
	}
	job := Job{
		Files:     dedupe(r.Files),
		Operation: Operation(r.Operation),
		Tags:      make([]string, len(r.Tags)),
		Location:  d.Location,
		Normalize: r.normalize(d),
		Position:  d.Position,
	}
	for i, t := range r.Tags {
		job.Tags[i] = tags.Prepare(t, job.Normalize)
	}
	if o := r.Options; o != nil {
		if o.Location != "" {
			job.Location = Location(o.Location)
		}
		if o.Position != "" {
			job.Position = tagedit.Position(o.Position)
		}
		job.PreserveChildren = o.PreserveChildren
		for _, p := range o.Patterns {
			job.Patterns = append(job.Patterns, tags.Strip(p))
		}
	}
	return job, nil
}

// dedupe drops repeated files so each is processed once.
func dedupe(files []string) []string {
	seen := make(map[string]struct{}, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func markdownFile(v any) error {
	s, _ := v.(string)
	if len(s) <= len(".md") || !strings.HasSuffix(s, ".md") {
		return errors.New("must be a markdown file ending in .md")
	}
	return nil
}

func tagSyntax(normalize bool) validation.RuleFunc {
	return func(v any) error {
		s, _ := v.(string)
		if !tags.Validate(tags.Prepare(s, normalize)) {
			return fmt.Errorf("invalid tag %q", s)
		}
		return nil
	}
}

func patternSyntax(v any) error {
	s, _ := v.(string)
	if !tags.ValidatePattern(tags.Strip(s)) {
		return fmt.Errorf("invalid tag pattern %q", s)
	}
	return nil
}

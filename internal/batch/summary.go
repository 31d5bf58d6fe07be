package batch

import (
	"fmt"
	"strings"

	"github.com/starford/tagvault/internal/tagedit"
)

// Summary renders a report as plain text for chat-style clients.
func Summary(r *Report, op Operation) string {
	var b strings.Builder

	verb := "Updated"
	switch op {
	case OperationAdd:
		verb = "Added tags in"
	case OperationRemove:
		verb = "Removed tags from"
	}
	if len(r.Success) == 0 {
		b.WriteString("No files were modified.\n")
	} else {
		fmt.Fprintf(&b, "%s %d file(s):\n", verb, len(r.Success))
		for _, f := range r.Success {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	for _, f := range r.Details.Files() {
		ch, _ := r.Details.Get(f)
		fmt.Fprintf(&b, "\n%s:\n", f)
		writeChanges(&b, "Removed", ch.Removed)
		writeChanges(&b, "Preserved", ch.Preserved)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "\nErrors (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "- %s: %s\n", e.File, e.Error)
		}
	}
	return b.String()
}

func writeChanges(b *strings.Builder, label string, list []tagedit.Change) {
	if len(list) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s:\n", label)
	for _, c := range list {
		if c.Location == tagedit.LocationContent {
			fmt.Fprintf(b, "    - #%s (content, line %d)", c.Tag, c.Line)
			if c.Context != "" {
				fmt.Fprintf(b, ": %q", c.Context)
			}
			b.WriteByte('\n')
			continue
		}
		fmt.Fprintf(b, "    - %s (%s)\n", c.Tag, c.Location)
	}
}

package mcpserver

// TagFormatContract describes how TagVault reads and writes tags, for LLM
// consumers calling the tag tools.
const TagFormatContract = `# TagVault Tag Format Contract

Tags live in two places inside a Markdown note. TagVault edits both.

## Where tags live

` + "```" + `markdown
---
title: Weekly standup
tags:                   # frontmatter tags: a YAML list
  - meeting-notes
  - project/alpha
---

Body text with inline tags like #follow-up or #project/alpha/ui.
` + "```" + `

- **Frontmatter tags** are the ` + "`" + `tags` + "`" + ` list in the YAML block at the top of the file.
  A single comma-separated string (` + "`" + `tags: a, b` + "`" + `) is read too and becomes a list when edited.
- **Inline tags** are ` + "`" + `#tag` + "`" + ` tokens in the body. A token starts after a space or at the
  start of a line. Tags inside code spans and fenced code blocks are ignored.

## Grammar

1. A tag is one or more segments separated by ` + "`" + `/` + "`" + `: ` + "`" + `project/alpha/ui` + "`" + `.
2. Segments use letters, digits, ` + "`" + `-` + "`" + ` and ` + "`" + `_` + "`" + `. Any script is allowed.
3. A leading ` + "`" + `#` + "`" + ` is optional in tool arguments.

## Normalization (default on)

Tags are lower-cased kebab-case before use:

| Input            | Stored as          |
|------------------|--------------------|
| ` + "`" + `ProjectActive` + "`" + `  | ` + "`" + `project-active` + "`" + ` |
| ` + "`" + `Meeting Notes` + "`" + `  | ` + "`" + `meeting-notes` + "`" + `  |
| ` + "`" + `Work/HTMLParser` + "`" + ` | ` + "`" + `work/html-parser` + "`" + ` |

Pass ` + "`" + `normalize: false` + "`" + ` to compare and write tags verbatim.

## Hierarchy and patterns

- Removing ` + "`" + `project` + "`" + ` also removes ` + "`" + `project/alpha` + "`" + ` and everything below it,
  unless ` + "`" + `preserve_children` + "`" + ` is set. Preserved tags are listed in the report.
- ` + "`" + `patterns` + "`" + ` select extra tags on remove. ` + "`" + `*` + "`" + ` matches within one segment;
  a trailing ` + "`" + `/*` + "`" + ` matches every descendant: ` + "`" + `archive/*` + "`" + ` removes ` + "`" + `archive/2023` + "`" + `
  and ` + "`" + `archive/2024/q1` + "`" + ` but not ` + "`" + `archive` + "`" + ` itself.

## Results

Every call returns a summary and a JSON report with ` + "`" + `success` + "`" + ` (files written),
` + "`" + `errors` + "`" + ` (one entry per failed file) and ` + "`" + `details` + "`" + ` (removed and preserved tags
per file, with line numbers for inline tags). One failing file never stops the rest.
`

// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes TagVault tag tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tagvault/internal/batch"
	"github.com/starford/tagvault/internal/noteservice"
)

// TagFormatURI is the resource URI of the tag format contract.
const TagFormatURI = "tagvault://tag-format"

// Server wraps the MCP server with TagVault tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all TagVault tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"TagVault",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	s.mcp.AddTool(mcp.NewTool("manage_tags",
		mcp.WithDescription("Add or remove tags across a batch of Markdown notes. "+
			"Returns a human-readable summary followed by the JSON report. "+
			"Read the tag format contract first via get_tag_contract or the "+TagFormatURI+" resource."),
		mcp.WithArray("files", mcp.Required(), mcp.WithStringItems(),
			mcp.Description("Vault-relative note paths ending in .md")),
		mcp.WithString("operation", mcp.Required(), mcp.Enum("add", "remove"),
			mcp.Description("Whether to add or remove the tags")),
		mcp.WithArray("tags", mcp.Required(), mcp.WithStringItems(),
			mcp.Description("Tags to add or remove, with or without a leading #")),
		locationParam(),
		normalizeParam(),
		positionParam(),
		mcp.WithBoolean("preserve_children",
			mcp.Description("On remove, keep tags nested below the removed tags")),
		mcp.WithArray("patterns", mcp.WithStringItems(),
			mcp.Description("On remove, wildcard patterns such as archive/* selecting more tags")),
	), s.manageTags)

	s.mcp.AddTool(mcp.NewTool("add_tags",
		mcp.WithDescription("Add tags to a batch of notes. Shorthand for manage_tags with operation=add."),
		mcp.WithArray("files", mcp.Required(), mcp.WithStringItems(), mcp.Description("Note paths")),
		mcp.WithArray("tags", mcp.Required(), mcp.WithStringItems(), mcp.Description("Tags to add")),
		locationParam(),
		normalizeParam(),
		positionParam(),
	), s.addTags)

	s.mcp.AddTool(mcp.NewTool("remove_tags",
		mcp.WithDescription("Remove tags from a batch of notes. Shorthand for manage_tags with operation=remove."),
		mcp.WithArray("files", mcp.Required(), mcp.WithStringItems(), mcp.Description("Note paths")),
		mcp.WithArray("tags", mcp.Required(), mcp.WithStringItems(), mcp.Description("Tags to remove")),
		locationParam(),
		normalizeParam(),
		mcp.WithBoolean("preserve_children", mcp.Description("Keep tags nested below the removed tags")),
		mcp.WithArray("patterns", mcp.WithStringItems(), mcp.Description("Extra wildcard patterns")),
	), s.removeTags)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List indexed tags with the number of notes carrying each."),
		mcp.WithString("pattern", mcp.Description("Optional wildcard filter, e.g. project/*")),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("related_tags",
		mcp.WithDescription("List the indexed ancestors and descendants of a tag."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag to look up")),
	), s.relatedTags)

	s.mcp.AddTool(mcp.NewTool("notes_by_tag",
		mcp.WithDescription("List the notes carrying a tag."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag to look up")),
		mcp.WithBoolean("descendants", mcp.Description("Also include notes tagged below the tag")),
	), s.notesByTag)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with every tag occurrence it carries."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List indexed notes, optionally only those carrying a tag."),
		mcp.WithString("tag", mcp.Description("Optional tag filter (descendants included)")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_tag_contract",
		mcp.WithDescription("Returns the TagVault tag format contract. "+
			"Call this before adding tags to ensure they are well-formed."),
	), s.getTagContract)

	// Resource: tag format contract.
	s.mcp.AddResource(
		mcp.NewResource(TagFormatURI, "Tag Format Contract",
			mcp.WithResourceDescription("How tags are written, normalized and matched."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTagFormatResource,
	)

	return s
}

func locationParam() mcp.ToolOption {
	return mcp.WithString("location", mcp.Enum("frontmatter", "content", "both"),
		mcp.Description("Where to apply the change (default both)"))
}

func normalizeParam() mcp.ToolOption {
	return mcp.WithBoolean("normalize",
		mcp.Description("Normalize tags to lowercase kebab-case before use (default true)"))
}

func positionParam() mcp.ToolOption {
	return mcp.WithString("position", mcp.Enum("start", "end"),
		mcp.Description("Where inline tags are inserted (default end)"))
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// requestFromArgs builds a batch request from tool arguments. Options the
// caller left out stay unset so the service defaults apply.
func requestFromArgs(req mcp.CallToolRequest, op batch.Operation) (batch.Request, error) {
	files, err := req.RequireStringSlice("files")
	if err != nil {
		return batch.Request{}, err
	}
	tagList, err := req.RequireStringSlice("tags")
	if err != nil {
		return batch.Request{}, err
	}
	if op == "" {
		raw, err := req.RequireString("operation")
		if err != nil {
			return batch.Request{}, err
		}
		op = batch.Operation(raw)
	}

	opts := &batch.Options{
		Location:         req.GetString("location", ""),
		Position:         req.GetString("position", ""),
		PreserveChildren: req.GetBool("preserve_children", false),
		Patterns:         req.GetStringSlice("patterns", nil),
	}
	if _, ok := req.GetArguments()["normalize"]; ok {
		n := req.GetBool("normalize", true)
		opts.Normalize = &n
	}

	return batch.Request{
		Files:     files,
		Operation: string(op),
		Tags:      tagList,
		Options:   opts,
	}, nil
}

func (s *Server) runTags(ctx context.Context, req mcp.CallToolRequest, op batch.Operation) (*mcp.CallToolResult, error) {
	br, err := requestFromArgs(req, op)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ManageTags(ctx, br)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := json.MarshalIndent(res.Report, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(res.Summary),
			mcp.NewTextContent(string(out)),
		},
		IsError: len(res.Report.Success) == 0 && res.Report.Failed(),
	}, nil
}

func (s *Server) manageTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.runTags(ctx, req, "")
}

func (s *Server) addTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.runTags(ctx, req, batch.OperationAdd)
}

func (s *Server) removeTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.runTags(ctx, req, batch.OperationRemove)
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.svc.ListTags(ctx, req.GetString("pattern", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("no tags found"), nil
	}
	var sb strings.Builder
	for _, tc := range list {
		fmt.Fprintf(&sb, "%s (%d)\n", tc.Tag, tc.Count)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) relatedTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list, err := s.svc.RelatedTags(ctx, tag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("no related tags found"), nil
	}
	names := make([]string, len(list))
	for i, tc := range list {
		names[i] = tc.Tag
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) notesByTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths, err := s.svc.NotesByTag(ctx, tag, req.GetBool("descendants", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", path, err)), nil
	}
	out, _ := json.MarshalIndent(n, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.ListNotes(ctx,
		req.GetInt("limit", 0), req.GetInt("offset", 0), req.GetString("tag", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := make([]string, len(items))
	for i, m := range items {
		paths[i] = m.Path
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d of %d notes\n%s", len(items), total, strings.Join(paths, "\n"))), nil
}

func (s *Server) getTagContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TagFormatContract), nil
}

func (s *Server) readTagFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      TagFormatURI,
			MIMEType: "text/markdown",
			Text:     TagFormatContract,
		},
	}, nil
}

// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes plainnote tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/plainnote/internal/apperr"
	"github.com/starford/plainnote/internal/models"
	"github.com/starford/plainnote/internal/notes"
)

// Server wraps the MCP server with plainnote tools.
type Server struct {
	mcp *server.MCPServer
	svc *notes.Service
}

// New creates a new MCP server with all plainnote tools registered.
func New(svc *notes.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"plainnote",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes of the configured directory, most recently modified first. "+
			"Each line is '<identity>\\t<title>'."),
		mcp.WithString("dir", mcp.Description("Optional directory to list instead of the configured one")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the body of a note."),
		mcp.WithString("identity", mcp.Required(), mcp.Description("Note identity as returned by list_notes")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note. Read the format via get_note_format or the "+
			NoteFormatURI+" resource first."),
		mcp.WithString("title", mcp.Description("Title (file name without extension); empty picks Untitled, Untitled1, ...")),
		mcp.WithString("body", mcp.Description("Note content")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("write_note",
		mcp.WithDescription("Save a note. A changed title renames the file and, when enabled, "+
			"rewrites [[links]] to it. Refused if another note already has the title."),
		mcp.WithString("identity", mcp.Required(), mcp.Description("Note identity")),
		mcp.WithString("title", mcp.Required(), mcp.Description("New or current title")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Full note content")),
	), s.writeNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note."),
		mcp.WithString("identity", mcp.Required(), mcp.Description("Note identity")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search; returns matching lines grouped per note."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the given title."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title of the linked note")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("set_link_auto_update",
		mcp.WithDescription("Enable or disable rewriting of [[links]] when a note is renamed."),
		mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("New value of edit.linkAutoUpdate")),
	), s.setLinkAutoUpdate)

	s.mcp.AddTool(mcp.NewTool("get_note_format",
		mcp.WithDescription("Returns the plainnote note format: titles, identities, links and attachments."),
	), s.getNoteFormat)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Copy an image or PDF into the notes directory from an http(s) URL or a "+
			"base64 data URI. Returns a markdown image reference."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI")),
		mcp.WithString("filename", mcp.Description("Optional file name to store the asset under")),
	), s.uploadAsset)

	s.mcp.AddResource(
		mcp.NewResource(NoteFormatURI, "Note Format",
			mcp.WithResourceDescription("How plainnote stores, names and links notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError turns a service error into a tool-level error result.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrDirectoryUnavailable):
		return mcp.NewToolResultError("no folder configured")
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.svc.ListNotes(ctx, req.GetString("dir", ""))
	if err != nil {
		return toolError(err), nil
	}
	if len(snap) == 0 {
		return mcp.NewToolResultText("no notes"), nil
	}
	lines := make([]string, 0, len(snap))
	for _, rec := range snap {
		lines = append(lines, string(rec.Identity)+"\t"+rec.Title)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("identity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := s.svc.GetBody(ctx, models.NoteIdentity(id))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(body), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, err := s.svc.CreateNote(ctx, req.GetString("title", ""), req.GetString("body", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(rec), nil
}

func (s *Server) writeNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("identity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ok, err := s.svc.WriteNote(ctx, models.NoteIdentity(id), title, body)
	if err != nil {
		return toolError(err), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("title already taken: %s", title)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", title)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("identity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteNote(ctx, models.NoteIdentity(id)); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, title)
	if err != nil {
		return toolError(err), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) setLinkAutoUpdate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	enabled, err := req.RequireBool("enabled")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.SetAutoLinkUpdate(enabled); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("edit.linkAutoUpdate = %t", enabled)), nil
}

func (s *Server) getNoteFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      NoteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

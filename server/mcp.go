package server

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"xhsmcp/xiaohongshu"
)

func (s *Server) newMCPServer(version string) *mcpserver.MCPServer {
	m := mcpserver.NewMCPServer("xhs-mcp", version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	m.AddTool(mcp.NewTool("check_login_status",
		mcp.WithDescription("Report whether the browser session is logged in."),
	), s.toolCheckLogin)

	m.AddTool(mcp.NewTool("list_feeds",
		mcp.WithDescription("List notes from the explore feed."),
		mcp.WithNumber("page", mcp.Description("Page number, starting at 1.")),
		mcp.WithNumber("size", mcp.Description("Items per page, at most 100.")),
	), s.toolListFeeds)

	m.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search notes by keyword. The keyword is placed in the URL as given."),
		mcp.WithString("keyword", mcp.Required(), mcp.Description("Search keyword, URL-encoded by the caller.")),
		mcp.WithNumber("page", mcp.Description("Result page, starting at 1.")),
		mcp.WithNumber("size", mcp.Description("Maximum number of results.")),
	), s.toolSearch)

	m.AddTool(mcp.NewTool("get_note_detail",
		mcp.WithDescription("Fetch one note with its images, tags, counts and comments."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note id from a feed or search result.")),
	), s.toolNoteDetail)

	m.AddTool(mcp.NewTool("post_comment",
		mcp.WithDescription("Type a comment under a note without sending it. A person confirms sending in the browser."),
		mcp.WithString("note_id", mcp.Required()),
		mcp.WithString("content", mcp.Required()),
		mcp.WithString("reply_to_comment_id", mcp.Description("Reply to this comment instead of the note.")),
	), s.toolComment)

	m.AddTool(mcp.NewTool("publish_content",
		mcp.WithDescription("Fill in the note publishing form without submitting it. A person confirms publishing in the browser."),
		mcp.WithArray("images", mcp.Required(), mcp.Items(map[string]any{"type": "string"}), mcp.Description("Local image file paths.")),
		mcp.WithString("title", mcp.Required()),
		mcp.WithString("content", mcp.Required()),
		mcp.WithArray("tags", mcp.Items(map[string]any{"type": "string"})),
		mcp.WithArray("topics", mcp.Items(map[string]any{"type": "string"})),
		mcp.WithBoolean("is_private"),
		mcp.WithString("location"),
	), s.toolPublish)

	return m
}

// toolResult renders v as JSON text, or err as a tool error.
func toolResult(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) toolCheckLogin(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.checkLogin(ctx))
}

func (s *Server) toolListFeeds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.feeds(ctx,
		req.GetInt("page", xiaohongshu.DefaultPage),
		req.GetInt("size", xiaohongshu.DefaultSize)))
}

func (s *Server) toolSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.search(ctx,
		req.GetString("keyword", ""),
		req.GetInt("page", xiaohongshu.DefaultPage),
		req.GetInt("size", xiaohongshu.DefaultSize)))
}

func (s *Server) toolNoteDetail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.noteDetail(ctx, req.GetString("note_id", "")))
}

func (s *Server) toolComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.comment(ctx, xiaohongshu.CommentRequest{
		NoteID:           req.GetString("note_id", ""),
		Content:          req.GetString("content", ""),
		ReplyToCommentID: req.GetString("reply_to_comment_id", ""),
	}))
}

func (s *Server) toolPublish(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.publish(ctx, xiaohongshu.PublishRequest{
		Images:    req.GetStringSlice("images", nil),
		Title:     req.GetString("title", ""),
		Content:   req.GetString("content", ""),
		Tags:      req.GetStringSlice("tags", nil),
		Topics:    req.GetStringSlice("topics", nil),
		IsPrivate: req.GetBool("is_private", false),
		Location:  req.GetString("location", ""),
	}))
}

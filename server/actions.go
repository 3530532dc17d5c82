package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"xhsmcp/queue"
	"xhsmcp/xiaohongshu"
)

// Each method validates its input and then runs the action on the page
// worker. HTTP handlers and MCP tools share them.

func (s *Server) checkLogin(ctx context.Context) (*xiaohongshu.LoginStatus, error) {
	return queue.Run(ctx, s.queue, "check_login", nil, s.actions.CheckLoginStatus)
}

// login holds the page until someone signs in or timeout passes.
func (s *Server) login(ctx context.Context, timeout time.Duration) (*xiaohongshu.LoginStatus, error) {
	if timeout <= 0 || timeout > s.loginTimeout {
		timeout = s.loginTimeout
	}
	params := map[string]any{"timeout_seconds": int(timeout.Seconds())}
	return queue.Run(ctx, s.queue, "login", params, func(ctx context.Context) (*xiaohongshu.LoginStatus, error) {
		if err := s.actions.Login(ctx, timeout, s.loginInterval); err != nil {
			if errors.Is(err, xiaohongshu.ErrLoginTimeout) {
				return &xiaohongshu.LoginStatus{Message: err.Error()}, nil
			}
			return nil, err
		}
		return &xiaohongshu.LoginStatus{IsLoggedIn: true, Message: "logged in"}, nil
	})
}

func (s *Server) feeds(ctx context.Context, page, size int) (*xiaohongshu.FeedResult, error) {
	page, size = xiaohongshu.NormalizePaging(page, size)
	params := map[string]any{"page": page, "size": size}
	return queue.Run(ctx, s.queue, "feeds", params, func(ctx context.Context) (*xiaohongshu.FeedResult, error) {
		return s.actions.GetFeeds(ctx, page, size)
	})
}

func (s *Server) search(ctx context.Context, keyword string, page, size int) (*xiaohongshu.SearchResult, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, fmt.Errorf("%w: keyword is required", xiaohongshu.ErrInvalidArgument)
	}
	page, size = xiaohongshu.NormalizePaging(page, size)
	params := map[string]any{"keyword": keyword, "page": page, "size": size}
	return queue.Run(ctx, s.queue, "search", params, func(ctx context.Context) (*xiaohongshu.SearchResult, error) {
		return s.actions.Search(ctx, keyword, page, size)
	})
}

func (s *Server) noteDetail(ctx context.Context, noteID string) (*xiaohongshu.NoteDetailResult, error) {
	if strings.TrimSpace(noteID) == "" {
		return nil, fmt.Errorf("%w: note_id is required", xiaohongshu.ErrInvalidArgument)
	}
	params := map[string]any{"note_id": noteID}
	return queue.Run(ctx, s.queue, "note_detail", params, func(ctx context.Context) (*xiaohongshu.NoteDetailResult, error) {
		return s.actions.GetNoteDetail(ctx, noteID)
	})
}

func (s *Server) comment(ctx context.Context, req xiaohongshu.CommentRequest) (*xiaohongshu.CommentResult, error) {
	if strings.TrimSpace(req.NoteID) == "" || strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: note_id and content are required", xiaohongshu.ErrInvalidArgument)
	}
	params := map[string]any{"note_id": req.NoteID, "content_length": len([]rune(req.Content))}
	if req.ReplyToCommentID != "" {
		params["reply_to_comment_id"] = req.ReplyToCommentID
	}
	return queue.Run(ctx, s.queue, "comment", params, func(ctx context.Context) (*xiaohongshu.CommentResult, error) {
		return s.actions.PostComment(ctx, req)
	})
}

func (s *Server) publish(ctx context.Context, req xiaohongshu.PublishRequest) (*xiaohongshu.PublishResult, error) {
	if len(req.Images) == 0 || strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: images, title and content are required", xiaohongshu.ErrInvalidArgument)
	}
	params := map[string]any{
		"title":  req.Title,
		"images": len(req.Images),
		"tags":   len(req.Tags),
		"topics": len(req.Topics),
	}
	return queue.Run(ctx, s.queue, "publish", params, func(ctx context.Context) (*xiaohongshu.PublishResult, error) {
		return s.actions.PublishContent(ctx, req)
	})
}

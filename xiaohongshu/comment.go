package xiaohongshu

import (
	"context"
	"fmt"
	"strings"
)

// PostComment types the comment into the note's comment box and stops there.
// The send button is located but never clicked; a successful result means the
// comment is staged for someone to send from the browser.
func (s *Service) PostComment(ctx context.Context, req CommentRequest) (*CommentResult, error) {
	req.NoteID = strings.TrimSpace(req.NoteID)
	if req.NoteID == "" || strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: note_id and content are required", ErrInvalidArgument)
	}
	log := s.logger.With("note_id", req.NoteID)
	log.Info("staging comment")

	fail := func(err error) (*CommentResult, error) {
		msg, err := pageFailure(ctx, err, "comment box not found")
		if err != nil {
			return nil, err
		}
		log.Error("staging comment failed", "err", msg)
		return &CommentResult{
			Message: "post comment failed: " + msg,
			NoteID:  req.NoteID,
		}, nil
	}

	if err := s.src.Navigate(ctx, NoteURL(req.NoteID)); err != nil {
		return fail(err)
	}
	if err := s.src.WaitVisible(ctx, NoteDetail, s.t.pageLoad); err != nil {
		return fail(err)
	}

	if err := s.src.Click(ctx, CommentButton, s.t.optionalClick); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Info("no comment button, looking for the input directly")
	}
	if req.ReplyToCommentID != "" {
		if err := s.src.Click(ctx, ReplyButton(req.ReplyToCommentID), s.t.optionalClick); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("reply control not found, commenting on the note", "reply_to", req.ReplyToCommentID, "err", err)
		}
	}

	if err := s.src.Fill(ctx, CommentInput, req.Content, s.t.field); err != nil {
		return fail(err)
	}
	if err := s.src.WaitVisible(ctx, SendButton, s.t.sendButton); err != nil {
		return fail(err)
	}

	log.Info("comment staged")
	return &CommentResult{
		Success:        true,
		Message:        "comment is ready, confirm sending in the browser",
		NoteID:         req.NoteID,
		CommentPreview: req.Content,
		Staged:         true,
	}, nil
}

package xiaohongshu

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultPage = 1
	DefaultSize = 20
	MaxSize     = 100
)

// NormalizePaging applies the defaults to non-positive values and caps size.
func NormalizePaging(page, size int) (int, int) {
	if page <= 0 {
		page = DefaultPage
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return page, size
}

// GetFeeds returns one page of the explore feed. Page-level failures land in
// the result's Error field; only cancellation is returned as an error.
func (s *Service) GetFeeds(ctx context.Context, page, size int) (*FeedResult, error) {
	page, size = NormalizePaging(page, size)
	res := &FeedResult{Page: page, Size: size, Feeds: []FeedItem{}}
	log := s.logger.With("page", page, "size", size)
	log.Info("fetching feeds")

	fail := func(err error) (*FeedResult, error) {
		msg, err := pageFailure(ctx, err, "feed content load timed out")
		if err != nil {
			return nil, err
		}
		log.Error("fetching feeds failed", "err", msg)
		res.Error = msg
		return res, nil
	}

	if err := s.src.Navigate(ctx, ExploreURL); err != nil {
		return fail(err)
	}
	if err := s.src.WaitVisible(ctx, NoteItem, s.t.pageLoad); err != nil {
		return fail(err)
	}
	if page > 1 {
		if err := s.scrollPages(ctx, page-1); err != nil {
			return nil, err
		}
	}

	html, err := s.src.HTML(ctx)
	if err != nil {
		return fail(err)
	}
	doc, err := parseDocument(html)
	if err != nil {
		return fail(fmt.Errorf("parse feed page: %w", err))
	}

	start, end := (page-1)*size, page*size
	doc.Find(NoteItem).Each(func(i int, item *goquery.Selection) {
		if i < start || i >= end {
			return
		}
		card, ok := extractCard(item)
		if !ok {
			log.Warn("skipping feed item without link", "position", i+1)
			return
		}
		res.Feeds = append(res.Feeds, FeedItem{
			NoteCard: card,
			Reason:   strings.TrimSpace(item.Find(CardReason).First().Text()),
			Position: i + 1,
		})
	})
	res.TotalCount = len(res.Feeds)
	log.Info("fetched feeds", "count", res.TotalCount)
	return res, nil
}

// scrollPages scrolls to the bottom up to n times, waiting each time for more
// items to render. It stops at the first scroll that loads nothing new.
func (s *Service) scrollPages(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		before, err := s.src.Count(ctx, NoteItem)
		if err != nil {
			s.logger.Warn("counting feed items failed", "err", err)
			return ctx.Err()
		}
		if err := s.src.ScrollToBottom(ctx); err != nil {
			s.logger.Warn("scroll failed", "err", err)
			return ctx.Err()
		}
		err = waitUntil(ctx, "more feed items", s.t.scrollGrowth, s.t.poll, func(ctx context.Context) (bool, error) {
			after, err := s.src.Count(ctx, NoteItem)
			return err == nil && after > before, nil
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.logger.Warn("no more feed items after scroll", "scrolls", i+1)
			return nil
		}
	}
	return nil
}

// GetNoteDetail opens a note and extracts it. A failure yields an empty
// detail and an Error message.
func (s *Service) GetNoteDetail(ctx context.Context, noteID string) (*NoteDetailResult, error) {
	noteID = strings.TrimSpace(noteID)
	if noteID == "" {
		return nil, fmt.Errorf("%w: note_id is required", ErrInvalidArgument)
	}
	res := &NoteDetailResult{NoteID: noteID, Detail: &Note{}}
	log := s.logger.With("note_id", noteID)
	log.Info("fetching note detail")

	fail := func(err error) (*NoteDetailResult, error) {
		msg, err := pageFailure(ctx, err, "note detail load timed out")
		if err != nil {
			return nil, err
		}
		log.Error("fetching note detail failed", "err", msg)
		res.Error = msg
		return res, nil
	}

	if err := s.src.Navigate(ctx, NoteURL(noteID)); err != nil {
		return fail(err)
	}
	if err := s.src.WaitVisible(ctx, NoteDetail, s.t.pageLoad); err != nil {
		return fail(err)
	}
	html, err := s.src.HTML(ctx)
	if err != nil {
		return fail(err)
	}
	doc, err := parseDocument(html)
	if err != nil {
		return fail(fmt.Errorf("parse note page: %w", err))
	}

	note := extractNote(doc, noteID)
	res.Detail = &note
	return res, nil
}

package xiaohongshu

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Search runs a keyword search. The keyword goes into the URL path as is.
func (s *Service) Search(ctx context.Context, keyword string, page, size int) (*SearchResult, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, fmt.Errorf("%w: keyword is required", ErrInvalidArgument)
	}
	page, size = NormalizePaging(page, size)
	res := &SearchResult{Keyword: keyword, Page: page, Size: size, TotalPages: 1, Results: []NoteCard{}}
	log := s.logger.With("keyword", keyword, "page", page)
	log.Info("searching notes")

	fail := func(err error) (*SearchResult, error) {
		msg, err := pageFailure(ctx, err, "search results load timed out")
		if err != nil {
			return nil, err
		}
		log.Error("search failed", "err", msg)
		res.Error = msg
		return res, nil
	}

	if err := s.src.Navigate(ctx, SearchURL(keyword, page)); err != nil {
		return fail(err)
	}
	if err := s.src.WaitVisible(ctx, NoteItem, s.t.pageLoad); err != nil {
		return fail(err)
	}
	html, err := s.src.HTML(ctx)
	if err != nil {
		return fail(err)
	}
	doc, err := parseDocument(html)
	if err != nil {
		return fail(fmt.Errorf("parse search page: %w", err))
	}

	doc.Find(NoteItem).EachWithBreak(func(i int, item *goquery.Selection) bool {
		if i >= size {
			return false
		}
		card, ok := extractCard(item)
		if !ok {
			log.Warn("skipping search item without link", "index", i)
			return true
		}
		card.Comments = textOr(item.Find(CardComments), "0")
		res.Results = append(res.Results, card)
		return true
	})
	res.TotalCount = len(res.Results)
	res.TotalPages = totalPages(doc, page)
	log.Info("search done", "count", res.TotalCount, "total_pages", res.TotalPages)
	return res, nil
}

package xiaohongshu

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func parseDocument(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// NoteIDFromHref returns the id segment of an /explore/{id} link and any
// other href unchanged.
func NoteIDFromHref(href string) string {
	if !strings.HasPrefix(href, exploreHrefPrefix) {
		return href
	}
	id := strings.TrimPrefix(href, exploreHrefPrefix)
	if i := strings.IndexAny(id, "/?#"); i >= 0 {
		id = id[:i]
	}
	return id
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.First().Text())
}

func textOr(s *goquery.Selection, def string) string {
	if s.Length() == 0 {
		return def
	}
	return text(s)
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.First().Attr(name)
	return strings.TrimSpace(v)
}

// imageSrc reads src from the element itself or, for wrappers, its first img.
func imageSrc(s *goquery.Selection) string {
	if src := attr(s, "src"); src != "" {
		return src
	}
	return attr(s.Find("img"), "src")
}

// extractCard reads one grid tile. ok is false when the tile has no link.
func extractCard(item *goquery.Selection) (card NoteCard, ok bool) {
	link := item.Find(CardLink).First()
	href, exists := link.Attr("href")
	if !exists || strings.TrimSpace(href) == "" {
		return NoteCard{}, false
	}
	href = strings.TrimSpace(href)

	username := attr(item.Find(CardAvatar), "alt")
	if username == "" {
		username = text(item.Find(CardUsername))
	}

	return NoteCard{
		NoteID:   NoteIDFromHref(href),
		Title:    text(item.Find(CardTitle)),
		CoverURL: attr(item.Find(CardCover), "src"),
		Username: username,
		Likes:    textOr(item.Find(CardLikes), "0"),
		URL:      href,
	}, true
}

func extractNote(doc *goquery.Document, noteID string) Note {
	// Author fields are looked up outside the comment list so a commenter
	// never shadows the author.
	outside := func(sel string) *goquery.Selection {
		return doc.Find(sel).Not(CommentItem + " " + sel)
	}

	note := Note{
		NoteID:  noteID,
		Title:   text(doc.Find(DetailTitle)),
		Content: text(doc.Find(DetailContent)),
		User: &User{
			Username: text(outside(DetailUsername)),
			Avatar:   imageSrc(outside(DetailAvatar)),
		},
		PublishTime: text(doc.Find(DetailPublishTime)),
		Interactions: &Interaction{
			Likes:       textOr(outside(DetailLikes), "0"),
			Comments:    textOr(doc.Find(DetailComments), "0"),
			Collections: textOr(doc.Find(DetailCollections), "0"),
			Shares:      textOr(doc.Find(DetailShares), "0"),
		},
		Images:   []string{},
		Videos:   []string{},
		Tags:     []string{},
		Comments: []Comment{},
		URL:      NoteURL(noteID),
	}

	doc.Find(DetailImage).Each(func(_ int, s *goquery.Selection) {
		if src := imageSrc(s); src != "" {
			note.Images = append(note.Images, src)
		}
	})
	doc.Find(DetailVideo).Each(func(_ int, s *goquery.Selection) {
		src := attr(s, "src")
		if src == "" {
			src = attr(s.Find("source"), "src")
		}
		if src != "" {
			note.Videos = append(note.Videos, src)
		}
	})
	doc.Find(DetailTag).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			note.Tags = append(note.Tags, t)
		}
	})
	doc.Find(CommentItem).Not(NestedComment).Each(func(_ int, s *goquery.Selection) {
		c := extractComment(s)
		s.Find(NestedComment).Each(func(_ int, r *goquery.Selection) {
			c.Replies = append(c.Replies, extractComment(r))
		})
		note.Comments = append(note.Comments, c)
	})
	return note
}

// extractComment reads the fields of one comment, ignoring its replies.
func extractComment(s *goquery.Selection) Comment {
	own := func(sel string) *goquery.Selection {
		return s.Find(sel).FilterFunction(func(_ int, e *goquery.Selection) bool {
			return e.Closest(CommentItem).IsSelection(s)
		})
	}
	id, _ := s.Attr(commentIDAttr)
	return Comment{
		CommentID: id,
		User: &User{
			Username: text(own(DetailUsername)),
			Avatar:   imageSrc(own(DetailAvatar)),
		},
		Content:    text(own(CommentContent)),
		CreateTime: text(own(CommentDate)),
		Likes:      textOr(own(CommentLikes), "0"),
	}
}

// totalPages is the largest page number linked from the pagination control.
// Without a control there is one page; a control without numbers means the
// current page is all that is known.
func totalPages(doc *goquery.Document, current int) int {
	if doc.Find(Pagination).Length() == 0 {
		return 1
	}
	highest := 0
	doc.Find(PaginationRef).Each(func(_ int, s *goquery.Selection) {
		if n, err := strconv.Atoi(strings.TrimSpace(s.Text())); err == nil && n > highest {
			highest = n
		}
	})
	if highest < current {
		highest = current
	}
	if highest < 1 {
		highest = 1
	}
	return highest
}

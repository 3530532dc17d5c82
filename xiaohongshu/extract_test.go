package xiaohongshu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteIDFromHref(t *testing.T) {
	assert.Equal(t, "abc123", NoteIDFromHref("/explore/abc123"))
	assert.Equal(t, "abc123", NoteIDFromHref("/explore/abc123?xsec_token=t"))
	assert.Equal(t, "/user/profile/42", NoteIDFromHref("/user/profile/42"))
	assert.Equal(t, "https://www.xiaohongshu.com/explore/x", NoteIDFromHref("https://www.xiaohongshu.com/explore/x"))
	assert.Equal(t, "", NoteIDFromHref(""))
}

func TestExtractCardMissingFields(t *testing.T) {
	doc, err := parseDocument(page(`<div class="note-item"><a href="/explore/n1"></a></div>`))
	require.NoError(t, err)

	card, ok := extractCard(doc.Find(NoteItem).First())
	require.True(t, ok)
	assert.Equal(t, "n1", card.NoteID)
	assert.Equal(t, "", card.Title)
	assert.Equal(t, "", card.Username)
	assert.Equal(t, "0", card.Likes)
	assert.Equal(t, "/explore/n1", card.URL)
}

func TestExtractCardWithoutLinkIsSkipped(t *testing.T) {
	doc, err := parseDocument(page(`<div class="note-item"><div class="title">orphan</div></div>`))
	require.NoError(t, err)

	_, ok := extractCard(doc.Find(NoteItem).First())
	assert.False(t, ok)
}

func TestExtractCardUsernameFallback(t *testing.T) {
	doc, err := parseDocument(page(`<div class="note-item">
  <a href="/explore/n2">x</a>
  <div class="user-info"><span class="username">alice</span></div>
  <span class="likes">1.2万</span>
</div>`))
	require.NoError(t, err)

	card, ok := extractCard(doc.Find(NoteItem).First())
	require.True(t, ok)
	assert.Equal(t, "alice", card.Username)
	assert.Equal(t, "1.2万", card.Likes)
}

const detailFixture = `<div class="note-detail">
  <div class="author"><img class="avatar" src="https://img.example/author.jpg"><span class="username">author</span></div>
  <h1 class="note-title">Weekend hike</h1>
  <div class="note-content">Trail notes</div>
  <img class="note-image" src="https://img.example/1.jpg">
  <div class="note-image"><img src="https://img.example/2.jpg"></div>
  <video src="https://video.example/v.mp4"></video>
  <a class="tag">#hiking</a><a class="tag">#outdoors</a>
  <span class="publish-time">2024-05-01</span>
  <span class="likes-count">120</span>
  <span class="comments-count">2</span>
  <div class="comments-container">
    <div class="comment-item" data-comment-id="c1">
      <img class="avatar" src="https://img.example/bob.jpg"><span class="username">bob</span>
      <p class="content">Nice!</p><span class="date">05-02</span><span class="like-count">3</span>
      <div class="reply-container">
        <div class="comment-item" data-comment-id="c2">
          <span class="username">author</span><p class="content">Thanks</p>
        </div>
      </div>
    </div>
  </div>
</div>`

func TestExtractNote(t *testing.T) {
	doc, err := parseDocument(page(detailFixture))
	require.NoError(t, err)

	note := extractNote(doc, "n9")
	assert.Equal(t, "n9", note.NoteID)
	assert.Equal(t, "Weekend hike", note.Title)
	assert.Equal(t, "Trail notes", note.Content)
	assert.Equal(t, []string{"https://img.example/1.jpg", "https://img.example/2.jpg"}, note.Images)
	assert.Equal(t, []string{"https://video.example/v.mp4"}, note.Videos)
	assert.Equal(t, []string{"#hiking", "#outdoors"}, note.Tags)
	assert.Equal(t, "2024-05-01", note.PublishTime)
	assert.Equal(t, "author", note.User.Username)
	assert.Equal(t, "https://img.example/author.jpg", note.User.Avatar)
	assert.Equal(t, &Interaction{Likes: "120", Comments: "2", Collections: "0", Shares: "0"}, note.Interactions)
	assert.Equal(t, NoteURL("n9"), note.URL)

	require.Len(t, note.Comments, 1)
	top := note.Comments[0]
	assert.Equal(t, "c1", top.CommentID)
	assert.Equal(t, "bob", top.User.Username)
	assert.Equal(t, "Nice!", top.Content)
	assert.Equal(t, "05-02", top.CreateTime)
	assert.Equal(t, "3", top.Likes)
	require.Len(t, top.Replies, 1)
	assert.Equal(t, "c2", top.Replies[0].CommentID)
	assert.Equal(t, "Thanks", top.Replies[0].Content)
	assert.Equal(t, "0", top.Replies[0].Likes)
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		current int
		want    int
	}{
		{"no control", `<div></div>`, 1, 1},
		{"numbered links", `<div class="pagination"><a>1</a><a>2</a><a>7</a><a>下一页</a></div>`, 1, 7},
		{"control without numbers", `<div class="pagination"><a>下一页</a></div>`, 3, 3},
		{"empty control", `<div class="pagination"></div>`, 0, 1},
		{"current beyond links", `<div class="pagination"><a>2</a></div>`, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := parseDocument(page(tt.html))
			require.NoError(t, err)
			assert.Equal(t, tt.want, totalPages(doc, tt.current))
		})
	}
}

package xiaohongshu

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckLoginStatus(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		loggedIn bool
		message  string
	}{
		{"login button", page(`<button>登录</button>`), false, msgNotLoggedIn},
		{"avatar", page(`<img class="avatar" src="a.jpg">`), true, msgLoggedIn},
		{"neither", page(`<div>loading</div>`), false, msgUndetermined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource().serve(ExploreURL, tt.html)
			status, err := newTestService(src).CheckLoginStatus(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.loggedIn, status.IsLoggedIn)
			assert.Equal(t, tt.message, status.Message)
		})
	}
}

func TestCheckLoginStatusNavigationFailure(t *testing.T) {
	src := newFakeSource()
	src.navErr[ExploreURL] = errors.New("net::ERR_NAME_NOT_RESOLVED")

	status, err := newTestService(src).CheckLoginStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, status.IsLoggedIn)
	assert.Contains(t, status.Message, "ERR_NAME_NOT_RESOLVED")
}

func TestLoginWaitsForAvatar(t *testing.T) {
	src := newFakeSource().serve(ExploreURL, page(`<img class="avatar">`))
	err := newTestService(src).Login(context.Background(), time.Second, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []string{ExploreURL}, src.visited)
}

func TestLoginTimesOut(t *testing.T) {
	src := newFakeSource().serve(ExploreURL, page(`<button>登录</button>`))
	err := newTestService(src).Login(context.Background(), 50*time.Millisecond, 5*time.Millisecond)
	assert.ErrorIs(t, err, ErrLoginTimeout)
}

func TestLoginCancelled(t *testing.T) {
	src := newFakeSource().serve(ExploreURL, page(`<button>登录</button>`))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := newTestService(src).Login(ctx, time.Minute, 5*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoginRequiresTimeout(t *testing.T) {
	err := newTestService(newFakeSource()).Login(context.Background(), 0, time.Second)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGetFeedsFirstPage(t *testing.T) {
	src := newFakeSource().serve(ExploreURL, page(noteItems(5)))

	res, err := newTestService(src).GetFeeds(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Empty(t, res.Error)
	require.Len(t, res.Feeds, 3)
	assert.Equal(t, 3, res.TotalCount)

	first := res.Feeds[0]
	assert.Equal(t, "note1", first.NoteID)
	assert.Equal(t, "title 1", first.Title)
	assert.Equal(t, "user1", first.Username)
	assert.Equal(t, "10", first.Likes)
	assert.Equal(t, "https://img.example/cover1.jpg", first.CoverURL)
	assert.Equal(t, 1, first.Position)
}

func TestGetFeedsScrollsForLaterPages(t *testing.T) {
	src := newFakeSource().serve(ExploreURL, page(noteItems(2)), page(noteItems(4)))

	res, err := newTestService(src).GetFeeds(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, res.Feeds, 2)
	assert.Equal(t, "note3", res.Feeds[0].NoteID)
	assert.Equal(t, 3, res.Feeds[0].Position)
	assert.Equal(t, 1, src.scrolls)
}

func TestGetFeedsStopsScrollingWhenNothingLoads(t *testing.T) {
	src := newFakeSource().serve(ExploreURL, page(noteItems(2)))

	res, err := newTestService(src).GetFeeds(context.Background(), 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, src.scrolls)
	assert.Empty(t, res.Feeds)
	assert.Empty(t, res.Error)
}

func TestGetFeedsTimeout(t *testing.T) {
	src := newFakeSource().serve(ExploreURL, page(`<div>empty</div>`))

	res, err := newTestService(src).GetFeeds(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []FeedItem{}, res.Feeds)
	assert.Equal(t, 0, res.TotalCount)
	assert.Equal(t, "feed content load timed out", res.Error)
	assert.Equal(t, res.Error, res.FailureReason())
}

func TestGetFeedsPagingDefaults(t *testing.T) {
	src := newFakeSource().serve(ExploreURL, page(noteItems(1)))

	res, err := newTestService(src).GetFeeds(context.Background(), 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, MaxSize, res.Size)
}

func TestGetFeedsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestService(newFakeSource()).GetFeeds(ctx, 1, 20)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetNoteDetail(t *testing.T) {
	src := newFakeSource().serve(NoteURL("n9"), page(detailFixture))

	res, err := newTestService(src).GetNoteDetail(context.Background(), "n9")
	require.NoError(t, err)
	assert.Empty(t, res.Error)
	assert.Equal(t, "Weekend hike", res.Detail.Title)
	assert.Len(t, res.Detail.Comments, 1)
}

func TestGetNoteDetailFailure(t *testing.T) {
	src := newFakeSource()

	res, err := newTestService(src).GetNoteDetail(context.Background(), "gone")
	require.NoError(t, err)
	assert.Equal(t, &Note{}, res.Detail)
	assert.Equal(t, "note detail load timed out", res.Error)

	_, err = newTestService(src).GetNoteDetail(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSearch(t *testing.T) {
	html := page(noteItems(5) + `<div class="pagination"><a>1</a><a>2</a><a>12</a></div>`)
	src := newFakeSource().serve(SearchURL("food", 1), html)

	res, err := newTestService(src).Search(context.Background(), "food", 1, 3)
	require.NoError(t, err)
	assert.Len(t, res.Results, 3)
	assert.Equal(t, 3, res.TotalCount)
	assert.Equal(t, 12, res.TotalPages)
	assert.Equal(t, "food", res.Keyword)
	assert.Equal(t, "0", res.Results[0].Comments)

	res, err = newTestService(src).Search(context.Background(), "food", 1, 50)
	require.NoError(t, err)
	assert.Len(t, res.Results, 5)
}

func TestSearchKeepsKeywordVerbatim(t *testing.T) {
	src := newFakeSource()
	_, err := newTestService(src).Search(context.Background(), "a b/c", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.xiaohongshu.com/search_result/a b/c?page=2"}, src.visited)
}

func TestSearchValidation(t *testing.T) {
	src := newFakeSource()
	_, err := newTestService(src).Search(context.Background(), "", 1, 20)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, src.visited)
}

func TestSearchTimeout(t *testing.T) {
	res, err := newTestService(newFakeSource()).Search(context.Background(), "food", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []NoteCard{}, res.Results)
	assert.Equal(t, "search results load timed out", res.Error)
}

const commentFixture = `<div class="note-detail">
  <button class="comment-button">评论</button>
  <div class="comment-item" data-comment-id="c1"><span class="reply">回复</span></div>
  <textarea placeholder="添加评论..."></textarea>
  <button>发送</button>
</div>`

func TestPostCommentIsStagedNotSent(t *testing.T) {
	src := newFakeSource().serve(NoteURL("n1"), page(commentFixture))

	res, err := newTestService(src).PostComment(context.Background(), CommentRequest{
		NoteID:           "n1",
		Content:          "great post",
		ReplyToCommentID: "c1",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Staged)
	assert.Equal(t, "great post", res.CommentPreview)
	assert.Equal(t, "great post", src.fills[CommentInput])
	assert.True(t, src.clicked(CommentButton))
	assert.True(t, src.clicked(ReplyButton("c1")))
	assert.False(t, src.clicked(SendButton))
	assert.Empty(t, src.presses)
}

func TestPostCommentWithoutCommentButton(t *testing.T) {
	html := page(`<div class="note-detail"><textarea placeholder="添加评论..."></textarea><button>发送</button></div>`)
	src := newFakeSource().serve(NoteURL("n1"), html)

	res, err := newTestService(src).PostComment(context.Background(), CommentRequest{NoteID: "n1", Content: "hi"})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestPostCommentMissingInput(t *testing.T) {
	src := newFakeSource().serve(NoteURL("n1"), page(`<div class="note-detail"></div>`))

	res, err := newTestService(src).PostComment(context.Background(), CommentRequest{NoteID: "n1", Content: "hi"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "n1", res.NoteID)
	assert.NotEmpty(t, res.FailureReason())
}

func TestPostCommentValidation(t *testing.T) {
	src := newFakeSource()
	svc := newTestService(src)

	_, err := svc.PostComment(context.Background(), CommentRequest{NoteID: "n1"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = svc.PostComment(context.Background(), CommentRequest{Content: "hi"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, src.visited)
}

const publishFixture = `<form>
  <input type="file">
  <div class="img-preview"></div><div class="img-preview"></div>
  <input placeholder="添加标题">
  <textarea placeholder="分享你的想法..."></textarea>
  <button>添加标签</button><input placeholder="添加标签">
  <button>添加话题</button><input placeholder="搜索话题">
  <label><input type="checkbox">仅自己可见</label>
  <button>发布</button>
</form>`

func writeImages(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for _, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(p, []byte("img"), 0o600))
		paths = append(paths, p)
	}
	return paths
}

func TestPublishContentIsStagedNotPublished(t *testing.T) {
	images := writeImages(t, "a.jpg", "b.jpg")
	src := newFakeSource().serve(CreatorPublishURL, page(publishFixture))

	res, err := newTestService(src).PublishContent(context.Background(), PublishRequest{
		Images:    append(images, "/does/not/exist.jpg"),
		Title:     "Weekend",
		Content:   "Body",
		Tags:      []string{"travel", "food"},
		Topics:    []string{"hiking"},
		IsPrivate: true,
	})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	assert.Equal(t, [][]string{images}, src.files)
	assert.Equal(t, "Weekend", src.fills[TitleInput])
	assert.Equal(t, "Body", src.fills[ContentInput])
	assert.Equal(t, []string{"Enter", "Enter"}, src.presses)
	assert.False(t, src.clicked(PublishButton))

	p := res.Preview
	assert.Equal(t, "Weekend", p.Title)
	assert.Equal(t, 2, p.ImageCount)
	assert.Equal(t, 2, p.TagCount)
	assert.Equal(t, []string{"travel", "food"}, p.AppliedTags)
	// no .topic-item suggestion in the fixture
	assert.Equal(t, 1, p.TopicCount)
	assert.Empty(t, p.AppliedTopics)
	assert.True(t, p.IsPrivate)
}

func TestPublishContentValidation(t *testing.T) {
	src := newFakeSource()
	svc := newTestService(src)

	_, err := svc.PublishContent(context.Background(), PublishRequest{Title: "t", Content: "c"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.PublishContent(context.Background(), PublishRequest{Images: []string{"x.jpg"}, Content: "c"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.PublishContent(context.Background(), PublishRequest{
		Images: []string{"/missing/1.jpg", "/missing/2.jpg"}, Title: "t", Content: "c",
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, src.visited)
}

func TestPublishContentMissingUploadArea(t *testing.T) {
	images := writeImages(t, "a.jpg")
	src := newFakeSource().serve(CreatorPublishURL, page(`<div>maintenance</div>`))

	res, err := newTestService(src).PublishContent(context.Background(), PublishRequest{
		Images: images, Title: "t", Content: "c",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "upload images")
}

func TestResolveImagesMakesPathsAbsolute(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rel.jpg"), []byte("x"), 0o600))
	t.Chdir(dir)

	got, err := newTestService(newFakeSource()).ResolveImages([]string{"rel.jpg", "nope.jpg"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, filepath.IsAbs(got[0]))
	assert.Equal(t, "rel.jpg", filepath.Base(got[0]))
}

func TestPostCommentReplyControlMissing(t *testing.T) {
	html := page(`<div class="note-detail">
  <button class="comment-button">评论</button>
  <textarea placeholder="添加评论..."></textarea>
  <button>发送</button>
</div>`)
	src := newFakeSource().serve(NoteURL("n1"), html)

	res, err := newTestService(src).PostComment(context.Background(), CommentRequest{
		NoteID:           "n1",
		Content:          "hello",
		ReplyToCommentID: "gone",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, src.clicked(ReplyButton("gone")))
	assert.Equal(t, "hello", src.fills[CommentInput])
	assert.False(t, src.clicked(SendButton))
}

const publishWithLocationFixture = `<form>
  <input type="file">
  <div class="img-preview"></div>
  <input placeholder="添加标题">
  <textarea placeholder="分享你的想法..."></textarea>
  <button>添加话题</button><input placeholder="搜索话题"><div class="topic-item">#hiking</div>
  <button>添加地点</button><input placeholder="搜索地点"><div class="location-item">Shanghai</div>
  <button>发布</button>
</form>`

func TestPublishContentSetsLocation(t *testing.T) {
	images := writeImages(t, "a.jpg")
	src := newFakeSource().serve(CreatorPublishURL, page(publishWithLocationFixture))

	res, err := newTestService(src).PublishContent(context.Background(), PublishRequest{
		Images:   images,
		Title:    "t",
		Content:  "c",
		Topics:   []string{"hiking"},
		Location: "Shanghai",
	})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	assert.Equal(t, "Shanghai", src.fills[LocationInput])
	assert.True(t, src.clicked(LocationButton))
	assert.True(t, src.clicked(LocationItem))
	assert.Equal(t, "Shanghai", res.Preview.Location)
	assert.Equal(t, []string{"hiking"}, res.Preview.AppliedTopics)
	assert.False(t, res.Preview.IsPrivate)
	assert.False(t, src.clicked(PublishButton))
}

func TestPublishContentLocationNotFound(t *testing.T) {
	images := writeImages(t, "a.jpg")
	src := newFakeSource().serve(CreatorPublishURL, page(publishFixture))

	res, err := newTestService(src).PublishContent(context.Background(), PublishRequest{
		Images:   images,
		Title:    "t",
		Content:  "c",
		Location: "Shanghai",
	})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Empty(t, res.Preview.Location)
	assert.False(t, src.clicked(LocationItem))
}

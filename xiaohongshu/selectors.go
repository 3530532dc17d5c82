package xiaohongshu

import "fmt"

// Site URLs and DOM selectors. The markup changes without notice; when
// extraction comes back empty, start here.

const (
	ExploreURL        = "https://www.xiaohongshu.com/explore"
	noteURLFormat     = "https://www.xiaohongshu.com/explore/%s"
	searchURLFormat   = "https://www.xiaohongshu.com/search_result/%s?page=%d"
	CreatorPublishURL = "https://creator.xiaohongshu.com/publish/publish-note"

	exploreHrefPrefix = "/explore/"
)

// Login state
const (
	LoginButton = `button:has-text("登录")`
	Avatar      = `.avatar`
)

// Feed and search grid
const (
	NoteItem      = `.note-item`
	CardLink      = `a`
	CardCover     = `img`
	CardTitle     = `.title`
	CardAvatar    = `.user-avatar`
	CardUsername  = `.user-info .username`
	CardLikes     = `.likes-count, .likes`
	CardComments  = `.comments-count, .comments`
	CardReason    = `.recommend-reason`
	Pagination    = `.pagination`
	PaginationRef = `.pagination a`
)

// Note detail
const (
	NoteDetail        = `.note-detail`
	DetailTitle       = `.note-title`
	DetailContent     = `.note-content`
	DetailImage       = `.note-image`
	DetailVideo       = `.note-detail video`
	DetailUsername    = `.username`
	DetailAvatar      = `.avatar`
	DetailLikes       = `.likes-count`
	DetailComments    = `.comments-count`
	DetailCollections = `.collections-count`
	DetailShares      = `.shares-count`
	DetailTag         = `.tag`
	DetailPublishTime = `.publish-time`

	CommentItem    = `.comment-item`
	NestedComment  = `.reply-container .comment-item`
	CommentContent = `.content`
	CommentDate    = `.date`
	CommentLikes   = `.like-count`
	commentIDAttr  = "data-comment-id"
)

// Comment box
const (
	CommentButton = `.comment-button`
	CommentInput  = `textarea[placeholder="添加评论..."]`
	SendButton    = `button:has-text("发送")`
)

// Creator publish page
const (
	FileInput      = `input[type="file"]`
	UploadPreview  = `.img-preview`
	TitleInput     = `input[placeholder="添加标题"]`
	ContentInput   = `textarea[placeholder="分享你的想法..."]`
	AddTagButton   = `button:has-text("添加标签")`
	TagInput       = `input[placeholder="添加标签"]`
	AddTopicButton = `button:has-text("添加话题")`
	TopicInput     = `input[placeholder="搜索话题"]`
	TopicItem      = `.topic-item`
	LocationButton = `button:has-text("添加地点")`
	LocationInput  = `input[placeholder="搜索地点"]`
	LocationItem   = `.location-item`
	PrivateToggle  = `label:has-text("仅自己可见")`
	PublishButton  = `button:has-text("发布")`
)

// NoteURL is the canonical detail page of a note.
func NoteURL(noteID string) string {
	return fmt.Sprintf(noteURLFormat, noteID)
}

// SearchURL embeds keyword as given. Callers encode it.
func SearchURL(keyword string, page int) string {
	return fmt.Sprintf(searchURLFormat, keyword, page)
}

// ReplyButton targets the reply control of one comment.
func ReplyButton(commentID string) string {
	return fmt.Sprintf(`[%s=%q] .reply`, commentIDAttr, commentID)
}

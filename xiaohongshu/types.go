package xiaohongshu

// Gender as reported on a profile.
type Gender int

const (
	GenderUnknown Gender = iota
	GenderMale
	GenderFemale
)

// User is an author or commenter. Every field is best effort.
type User struct {
	UserID         string `json:"user_id,omitempty"`
	Username       string `json:"username"`
	Avatar         string `json:"avatar,omitempty"`
	Gender         Gender `json:"gender,omitempty"`
	Description    string `json:"description,omitempty"`
	FollowerCount  int    `json:"follower_count,omitempty"`
	FollowingCount int    `json:"following_count,omitempty"`
}

// Interaction counts are kept as the site displays them ("1.2万", "3k")
// and default to "0" when the element is missing.
type Interaction struct {
	Likes       string `json:"likes"`
	Comments    string `json:"comments"`
	Collections string `json:"collections"`
	Shares      string `json:"shares"`
}

type Comment struct {
	CommentID  string    `json:"comment_id,omitempty"`
	User       *User     `json:"user,omitempty"`
	Content    string    `json:"content"`
	CreateTime string    `json:"create_time,omitempty"`
	Likes      string    `json:"likes"`
	Replies    []Comment `json:"replies,omitempty"`
}

// Note is a single post. An empty Note marshals to {}.
type Note struct {
	NoteID       string       `json:"note_id,omitempty"`
	User         *User        `json:"user,omitempty"`
	Title        string       `json:"title,omitempty"`
	Content      string       `json:"content,omitempty"`
	Images       []string     `json:"images,omitempty"`
	Videos       []string     `json:"videos,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	PublishTime  string       `json:"publish_time,omitempty"`
	Interactions *Interaction `json:"interactions,omitempty"`
	Comments     []Comment    `json:"comments,omitempty"`
	URL          string       `json:"url,omitempty"`
}

// NoteCard is one tile of a feed or search grid.
type NoteCard struct {
	NoteID   string `json:"note_id"`
	Title    string `json:"title"`
	CoverURL string `json:"cover_url"`
	Username string `json:"username"`
	Likes    string `json:"likes"`
	Comments string `json:"comments,omitempty"`
	URL      string `json:"url"`
}

type FeedItem struct {
	NoteCard
	Reason   string `json:"reason,omitempty"`
	Position int    `json:"position"`
}

type FeedResult struct {
	Page       int        `json:"page"`
	Size       int        `json:"size"`
	Feeds      []FeedItem `json:"feeds"`
	TotalCount int        `json:"total_count"`
	Error      string     `json:"error,omitempty"`
}

type NoteDetailResult struct {
	NoteID string `json:"note_id"`
	Detail *Note  `json:"detail"`
	Error  string `json:"error,omitempty"`
}

type SearchResult struct {
	Keyword    string     `json:"keyword"`
	Page       int        `json:"page"`
	Size       int        `json:"size"`
	TotalPages int        `json:"total_pages"`
	Results    []NoteCard `json:"results"`
	TotalCount int        `json:"total_count"`
	Error      string     `json:"error,omitempty"`
}

type LoginStatus struct {
	IsLoggedIn bool   `json:"is_logged_in"`
	Message    string `json:"message"`
	User       *User  `json:"user_info,omitempty"`
}

type CommentRequest struct {
	NoteID           string `json:"note_id"`
	Content          string `json:"content"`
	ReplyToCommentID string `json:"reply_to_comment_id,omitempty"`
}

// CommentResult with Staged set means the text sits in the input box and
// nothing has been sent.
type CommentResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	NoteID         string `json:"note_id"`
	CommentPreview string `json:"comment_preview,omitempty"`
	Staged         bool   `json:"staged,omitempty"`
}

type PublishRequest struct {
	Images    []string `json:"images"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags,omitempty"`
	Topics    []string `json:"topics,omitempty"`
	IsPrivate bool     `json:"is_private,omitempty"`
	Location  string   `json:"location,omitempty"`
}

type PublishPreview struct {
	Title         string   `json:"title"`
	ImageCount    int      `json:"image_count"`
	TagCount      int      `json:"tag_count"`
	TopicCount    int      `json:"topic_count"`
	AppliedTags   []string `json:"applied_tags"`
	AppliedTopics []string `json:"applied_topics"`
	Location      string   `json:"location,omitempty"`
	IsPrivate     bool     `json:"is_private,omitempty"`
}

type PublishResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Preview *PublishPreview `json:"preview,omitempty"`
}

// FailureReason reports a page-level failure carried inside an otherwise
// successful result. It is empty when the action went through.
func (r *FeedResult) FailureReason() string       { return r.Error }
func (r *NoteDetailResult) FailureReason() string { return r.Error }
func (r *SearchResult) FailureReason() string     { return r.Error }
func (r *LoginStatus) FailureReason() string      { return "" }

func (r *CommentResult) FailureReason() string {
	if r.Success {
		return ""
	}
	return r.Message
}

func (r *PublishResult) FailureReason() string {
	if r.Success {
		return ""
	}
	return r.Message
}

package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/yay-client/pkg/pagination"
)

const (
	pathPostsV1         = "/v1/posts"
	pathPostsV2         = "/v2/posts"
	pathPostsV3         = "/v3/posts"
	pathConversations   = "/v2/conversations"
	pathTimeline        = pathPostsV2 + "/timeline"
	pathUserTimeline    = pathPostsV2 + "/user_timeline"
	pathKeywordTimeline = pathPostsV2 + "/search"
	pathHashtagTimeline = pathPostsV2 + "/tags"
	pathFollowTimeline  = pathPostsV2 + "/following_timeline"
)

// TimelineQuery selects a timeline. At most one field is used, in the
// order UserID, Keyword, Hashtag; the zero value is the global timeline.
type TimelineQuery struct {
	UserID  int64
	Keyword string
	Hashtag string
}

// PostOptions are the optional attributes of a new post.
type PostOptions struct {
	Color    int
	FontSize int
	Choices  []string

	// GroupID posts into a group when set.
	GroupID int64

	// InReplyTo makes the post a reply.
	InReplyTo int64

	// SharedPostID makes the post a repost.
	SharedPostID int64
}

// ErrEmptyPost is returned by CreatePost for blank text.
var ErrEmptyPost = errors.New("post text is empty")

func decodePosts(resp postsResponse) pagination.Page[Post] {
	return pagination.Page[Post]{
		Items: resp.Posts,
		Next:  lastID(resp.Posts, func(p Post) int64 { return p.ID }),
	}
}

// GetPost fetches one post.
func (c *Client) GetPost(ctx context.Context, postID int64) (*Post, error) {
	var resp postResponse
	if err := c.Do(ctx, http.MethodGet, idPath(pathPostsV2, postID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Post, nil
}

// GetTimeline lists posts of the timeline selected by q. An unset amount
// fetches one page.
func (c *Client) GetTimeline(ctx context.Context, q TimelineQuery, amount pagination.Amount) ([]Post, error) {
	var (
		path string
		base url.Values
		list string
	)
	switch {
	case q.UserID != 0:
		path, base, list = pathUserTimeline, idParam("user_id", q.UserID), "user_timeline"
	case q.Keyword != "":
		path, base, list = pathKeywordTimeline, url.Values{"keyword": []string{q.Keyword}}, "keyword_timeline"
	case q.Hashtag != "":
		path, list = pathHashtagTimeline+"/"+url.PathEscape(q.Hashtag), "hashtag_timeline"
	default:
		path, list = pathTimeline, "timeline"
	}

	fetch := listFetcher(c, path, base, "from_post_id", decodePosts)
	opts := c.listOptions(list, pagination.PageSizeDefault, onePage(pagination.PageSizeDefault), nil)
	return collect(ctx, fetch, opts, amount)
}

// GetFollowingTimeline lists posts from users the logged-in user follows.
func (c *Client) GetFollowingTimeline(ctx context.Context, amount pagination.Amount) ([]Post, error) {
	fetch := listFetcher(c, pathFollowTimeline, nil, "from_post_id", decodePosts)
	opts := c.listOptions("following_timeline", pagination.PageSizeFollow, onePage(pagination.PageSizeFollow), nil)
	return collect(ctx, fetch, opts, amount)
}

// GetConversation lists the posts of a conversation, oldest first.
func (c *Client) GetConversation(ctx context.Context, conversationID int64, amount pagination.Amount) ([]Post, error) {
	base := url.Values{"reverse": []string{"true"}}
	fetch := listFetcher(c, idPath(pathConversations, conversationID), base, "from_post_id", decodePosts)
	opts := c.listOptions("conversation", pagination.PageSizeDefault, onePage(pagination.PageSizeDefault), nil)
	return collect(ctx, fetch, opts, amount)
}

// GetPostConversation lists the conversation a post belongs to.
func (c *Client) GetPostConversation(ctx context.Context, postID int64, amount pagination.Amount) ([]Post, error) {
	post, err := c.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	conversationID := post.ConversationID
	if conversationID == 0 {
		conversationID = post.ID
	}
	return c.GetConversation(ctx, conversationID, amount)
}

// GetReposts lists reposts of a post.
func (c *Client) GetReposts(ctx context.Context, postID int64, amount pagination.Amount) ([]Post, error) {
	fetch := listFetcher(c, idPath(pathPostsV2, postID, "reposts"), nil, "from_post_id", decodePosts)
	opts := c.listOptions("reposts", pagination.PageSizeDefault, onePage(pagination.PageSizeDefault), nil)
	return collect(ctx, fetch, opts, amount)
}

// GetPostLikers lists users who liked a post.
func (c *Client) GetPostLikers(ctx context.Context, postID int64, amount pagination.Amount) ([]User, error) {
	fetch := listFetcher(c, idPath(pathPostsV1, postID, "likers"), nil, "from_id", decodeUsersByLastID)
	opts := c.listOptions("post_likers", pagination.PageSizeFollow, onePage(pagination.PageSizeFollow), nil)
	return collect(ctx, fetch, opts, amount)
}

// CreatePost publishes a text post.
func (c *Client) CreatePost(ctx context.Context, text string, opts PostOptions) (*Post, error) {
	if text == "" {
		return nil, ErrEmptyPost
	}

	params := url.Values{}
	params.Set("text", text)
	params.Set("color", strconv.Itoa(opts.Color))
	params.Set("font_size", strconv.Itoa(opts.FontSize))
	for _, choice := range opts.Choices {
		params.Add("choices[]", choice)
	}
	if opts.GroupID != 0 {
		params.Set("group_id", strconv.FormatInt(opts.GroupID, 10))
	}
	if opts.InReplyTo != 0 {
		params.Set("in_reply_to", strconv.FormatInt(opts.InReplyTo, 10))
	}
	if opts.SharedPostID != 0 {
		params.Set("shared_id", strconv.FormatInt(opts.SharedPostID, 10))
	}

	path := pathPostsV3 + "/new"
	if opts.SharedPostID != 0 {
		path = pathPostsV3 + "/repost"
	}

	var resp postResponse
	if err := c.Do(ctx, http.MethodPost, path, params, &resp); err != nil {
		return nil, err
	}
	return &resp.Post, nil
}

// DeletePost deletes one of the logged-in user's posts.
func (c *Client) DeletePost(ctx context.Context, postID int64) (*Result, error) {
	params := url.Values{"posts_ids[]": formatIDs([]int64{postID})}
	return c.mutate(ctx, http.MethodPost, pathPostsV2+"/mass_destroy", params)
}

// PinPost pins a post to the logged-in user's profile.
func (c *Client) PinPost(ctx context.Context, postID int64) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, pathPostsV2+"/pinned", idParam("id", postID))
}

// UnpinPost removes a pinned post.
func (c *Client) UnpinPost(ctx context.Context, postID int64) (*Result, error) {
	return c.mutate(ctx, http.MethodDelete, idPath(pathPostsV2+"/pinned", postID), nil)
}

// LikePosts likes one or more posts in a single call.
func (c *Client) LikePosts(ctx context.Context, postIDs ...int64) (*Result, error) {
	params := url.Values{"post_ids[]": formatIDs(postIDs)}
	return c.mutate(ctx, http.MethodPost, pathPostsV2+"/like", params)
}

// UnlikePost removes a like.
func (c *Client) UnlikePost(ctx context.Context, postID int64) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, idPath(pathPostsV1, postID, "unlike"), nil)
}

package client

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/Sternrassler/yay-client/internal/testutil"
	"github.com/Sternrassler/yay-client/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbers(t *testing.T, mock *testutil.MockYay, path string) []int {
	t.Helper()
	var out []int
	for _, q := range mock.Queries(path) {
		n, err := strconv.Atoi(q.Get("number"))
		require.NoError(t, err)
		out = append(out, n)
	}
	return out
}

func cursors(mock *testutil.MockYay, path, param string) []string {
	var out []string
	for _, q := range mock.Queries(path) {
		out = append(out, q.Get(param))
	}
	return out
}

func followersFixture(n int) *testutil.MockYay {
	mock := testutil.NewMockYay()
	mock.SetJSON("/v2/users/9", map[string]any{"user": map[string]any{"id": 9, "followers_count": n}})
	mock.SetList("/v2/users/9/web_followers", testutil.ListFixture{
		Key:         "users",
		CursorParam: "from_follow_id",
		NextField:   "last_follow_id",
		Records:     testutil.Users(n),
	})
	return mock
}

func TestGetUserFollowers_UnboundedUsesTotal(t *testing.T) {
	mock := followersFixture(120)
	defer mock.Close()

	c := newTestClient(t, mock.URL())
	users, err := c.GetUserFollowers(context.Background(), 9, pagination.Amount{})
	require.NoError(t, err)

	require.Len(t, users, 120)
	assert.Equal(t, int64(1), users[0].ID)
	assert.Equal(t, int64(120), users[119].ID)
	assert.Equal(t, []int{50, 50, 20}, numbers(t, mock, "/v2/users/9/web_followers"))
	assert.Equal(t, []string{"", "50", "100"}, cursors(mock, "/v2/users/9/web_followers", "from_follow_id"))
	assert.Equal(t, 1, mock.PathCount("/v2/users/9"))
}

func TestGetUserFollowers_ExactAmount(t *testing.T) {
	mock := followersFixture(120)
	defer mock.Close()

	c := newTestClient(t, mock.URL())
	users, err := c.GetUserFollowers(context.Background(), 9, pagination.Exactly(60))
	require.NoError(t, err)

	assert.Len(t, users, 60)
	assert.Equal(t, []int{50, 10}, numbers(t, mock, "/v2/users/9/web_followers"))
	assert.Equal(t, 0, mock.PathCount("/v2/users/9"), "a bounded request needs no total")
}

func TestGetUserFollowers_ShortList(t *testing.T) {
	mock := followersFixture(30)
	defer mock.Close()

	c := newTestClient(t, mock.URL())
	users, err := c.GetUserFollowers(context.Background(), 9, pagination.Exactly(500))
	require.NoError(t, err)

	assert.Len(t, users, 30)
	assert.Equal(t, 1, mock.PathCount("/v2/users/9/web_followers"))
}

func TestGetUserFollowers_ErrorDiscardsPartialResult(t *testing.T) {
	mock := testutil.NewMockYay()
	defer mock.Close()

	var calls atomic.Int32
	mock.SetHandler("/v2/users/9/web_followers", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 2 {
			testutil.WriteJSON(w, http.StatusForbidden, map[string]any{"result": "error"})
			return
		}
		testutil.WriteJSON(w, http.StatusOK, map[string]any{"users": testutil.Users(50), "last_follow_id": 50})
	})

	c := newTestClient(t, mock.URL())
	users, err := c.GetUserFollowers(context.Background(), 9, pagination.Exactly(100))

	assert.Nil(t, users)
	assert.True(t, errors.Is(err, ErrForbidden), "error = %v", err)
}

func TestGetUserFollowings(t *testing.T) {
	mock := testutil.NewMockYay()
	defer mock.Close()
	mock.SetJSON("/v2/users/3", map[string]any{"user": map[string]any{"id": 3, "followings_count": 70}})
	mock.SetList("/v2/users/3/web_followings", testutil.ListFixture{
		Key:         "users",
		CursorParam: "from_follow_id",
		NextField:   "last_follow_id",
		Records:     testutil.Users(70),
	})

	c := newTestClient(t, mock.URL())
	users, err := c.GetUserFollowings(context.Background(), 3, pagination.Unbounded())
	require.NoError(t, err)

	assert.Len(t, users, 70)
	assert.Equal(t, []int{50, 20}, numbers(t, mock, "/v2/users/3/web_followings"))
}

func TestGetLetters(t *testing.T) {
	mock := testutil.NewMockYay()
	defer mock.Close()
	mock.SetJSON("/v2/users/5", map[string]any{"user": map[string]any{"id": 5, "reviews_count": 150}})
	mock.SetList("/v1/users/reviews/5", testutil.ListFixture{
		Key:         "reviews",
		CursorParam: "from_id",
		Records:     testutil.Users(150),
	})

	c := newTestClient(t, mock.URL())
	letters, err := c.GetLetters(context.Background(), 5, pagination.Amount{})
	require.NoError(t, err)

	assert.Len(t, letters, 150)
	assert.Equal(t, []string{"", "100"}, cursors(mock, "/v1/users/reviews/5", "from_id"))
	for _, q := range mock.Queries("/v1/users/reviews/5") {
		assert.Equal(t, "false", q.Get("not_active"))
	}
}

func TestGetTimeline_Selection(t *testing.T) {
	tests := []struct {
		name  string
		query TimelineQuery
		path  string
		param string
		value string
	}{
		{"user", TimelineQuery{UserID: 4}, "/v2/posts/user_timeline", "user_id", "4"},
		{"keyword", TimelineQuery{Keyword: "cats"}, "/v2/posts/search", "keyword", "cats"},
		{"hashtag", TimelineQuery{Hashtag: "gm"}, "/v2/posts/tags/gm", "", ""},
		{"global", TimelineQuery{}, "/v2/posts/timeline", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockYay()
			defer mock.Close()
			mock.SetList(tt.path, testutil.ListFixture{Key: "posts", CursorParam: "from_post_id", Records: testutil.Users(250)})

			c := newTestClient(t, mock.URL())
			posts, err := c.GetTimeline(context.Background(), tt.query, pagination.Amount{})
			require.NoError(t, err)

			assert.Len(t, posts, pagination.PageSizeDefault, "unset amount fetches one page")
			queries := mock.Queries(tt.path)
			require.Len(t, queries, 1)
			if tt.param != "" {
				assert.Equal(t, tt.value, queries[0].Get(tt.param))
			}
		})
	}
}

func TestGetChatMessages_HonorsAmount(t *testing.T) {
	mock := testutil.NewMockYay()
	defer mock.Close()
	mock.SetList("/v2/chat_rooms/8/messages", testutil.ListFixture{
		Key:         "messages",
		CursorParam: "from_message_id",
		Records:     testutil.Users(400),
	})

	c := newTestClient(t, mock.URL())
	msgs, err := c.GetChatMessages(context.Background(), 8, pagination.Exactly(250))
	require.NoError(t, err)

	assert.Len(t, msgs, 250)
	assert.Equal(t, []int{100, 100, 50}, numbers(t, mock, "/v2/chat_rooms/8/messages"))
	assert.Equal(t, []string{"", "100", "200"}, cursors(mock, "/v2/chat_rooms/8/messages", "from_message_id"))
}

func TestGetJoinedGroups_PagesByIndex(t *testing.T) {
	mock := testutil.NewMockYay()
	defer mock.Close()

	pages := map[string]int{"0": 100, "1": 20}
	mock.SetHandler("/v1/groups/user_group_list", func(w http.ResponseWriter, r *http.Request) {
		n := pages[r.URL.Query().Get("page")]
		testutil.WriteJSON(w, http.StatusOK, map[string]any{"groups": testutil.Users(n)})
	})

	c := newTestClient(t, mock.URL())
	groups, err := c.GetJoinedGroups(context.Background(), 1, pagination.Exactly(300))
	require.NoError(t, err)

	assert.Len(t, groups, 120)
	assert.Equal(t, []string{"0", "1", "2"}, cursors(mock, "/v1/groups/user_group_list", "page"))
}

func TestGetJoinedGroups_FullPagesOnOffsetServer(t *testing.T) {
	mock := testutil.NewMockYay()
	defer mock.Close()

	all := testutil.Users(250)
	mock.SetHandler("/v1/groups/user_group_list", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		number, _ := strconv.Atoi(q.Get("number"))
		start := min(page*number, len(all))
		end := min(start+number, len(all))
		testutil.WriteJSON(w, http.StatusOK, map[string]any{"groups": all[start:end]})
	})

	c := newTestClient(t, mock.URL())
	groups, err := c.GetJoinedGroups(context.Background(), 1, pagination.Exactly(150))
	require.NoError(t, err)

	require.Len(t, groups, 150)
	seen := make(map[int64]bool)
	for i, g := range groups {
		assert.Equal(t, int64(i+1), g.ID)
		assert.False(t, seen[g.ID], "group %d returned twice", g.ID)
		seen[g.ID] = true
	}
	assert.Equal(t, []int{100, 100}, numbers(t, mock, "/v1/groups/user_group_list"))
}

func TestGroupModerationLists(t *testing.T) {
	mock := testutil.NewMockYay()
	defer mock.Close()
	mock.SetList("/v2/groups/3/members", testutil.ListFixture{Key: "users", CursorParam: "from_id", Records: testutil.Users(130)})
	mock.SetList("/v1/groups/3/ban_list", testutil.ListFixture{Key: "users", CursorParam: "from_id", Records: testutil.Users(4)})

	c := newTestClient(t, mock.URL())
	ctx := context.Background()

	pending, err := c.GetPendingGroupUsers(ctx, 3, pagination.Unbounded())
	require.NoError(t, err)
	assert.Len(t, pending, 130)
	assert.Equal(t, []string{"", "100", "130"}, cursors(mock, "/v2/groups/3/members", "from_id"))
	for _, q := range mock.Queries("/v2/groups/3/members") {
		assert.Equal(t, "pending", q.Get("mode"))
	}

	banned, err := c.GetBannedGroupUsers(ctx, 3, pagination.Amount{})
	require.NoError(t, err)
	assert.Len(t, banned, 4)
	assert.Equal(t, []int{100}, numbers(t, mock, "/v1/groups/3/ban_list"))
}

func TestGetGroupCall(t *testing.T) {
	mock := testutil.NewMockYay()
	defer mock.Close()
	mock.SetList("/v2/posts/call_timeline", testutil.ListFixture{Key: "posts", CursorParam: "from_post_id", Records: testutil.Users(30)})

	c := newTestClient(t, mock.URL())
	posts, err := c.GetGroupCall(context.Background(), 3, pagination.Amount{})
	require.NoError(t, err)

	assert.Len(t, posts, 20)
	queries := mock.Queries("/v2/posts/call_timeline")
	require.Len(t, queries, 1)
	assert.Equal(t, "3", queries[0].Get("group_id"))
	assert.Equal(t, "20", queries[0].Get("number"))
}

func TestGetChatMessagesWithUser(t *testing.T) {
	mock := testutil.NewMockYay()
	defer mock.Close()
	mock.SetJSON("/v1/chat_rooms/new", map[string]any{"room_id": 8})
	mock.SetList("/v2/chat_rooms/8/messages", testutil.ListFixture{Key: "messages", CursorParam: "from_message_id", Records: testutil.Users(10)})

	c := newTestClient(t, mock.URL())
	msgs, err := c.GetChatMessagesWithUser(context.Background(), 5, pagination.Exactly(10))
	require.NoError(t, err)

	assert.Len(t, msgs, 10)
	assert.Equal(t, "5", mock.Queries("/v1/chat_rooms/new")[0].Get("with_user_id"))
}

func TestList_CancelledBetweenPagesKeepsKind(t *testing.T) {
	mock := followersFixture(120)
	defer mock.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newTestClient(t, mock.URL(), func(cfg *Config) {
		cfg.Progress = func(pagination.Progress) { cancel() }
	})

	users, err := c.GetUserFollowers(ctx, 9, pagination.Exactly(120))
	assert.Nil(t, users)
	assert.Equal(t, KindUnknown, KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, mock.PathCount("/v2/users/9/web_followers"))
}

func TestCreateGroup(t *testing.T) {
	mock := testutil.NewMockYay()
	defer mock.Close()
	mock.SetJSON("/v1/groups/new", map[string]string{"result": "success"})

	c := newTestClient(t, mock.URL())

	_, err := c.CreateGroup(context.Background(), GroupSettings{})
	assert.ErrorIs(t, err, ErrEmptyGroupName)
	assert.Equal(t, 0, mock.RequestCount())

	settings := DefaultGroupSettings("gophers")
	settings.Private = true
	_, err = c.CreateGroup(context.Background(), settings)
	require.NoError(t, err)

	q := mock.Queries("/v1/groups/new")[0]
	assert.Equal(t, "gophers", q.Get("topic"))
	assert.Equal(t, "21", q.Get("group_category_id"))
	assert.Equal(t, "true", q.Get("is_private"))
	assert.Equal(t, "member", q.Get("allow_thread_creation_by"))
	assert.Equal(t, "-1", q.Get("gender"))
}

func TestGetNotifications_UsesActivityHost(t *testing.T) {
	api := testutil.NewMockYay()
	defer api.Close()
	cas := testutil.NewMockYay()
	defer cas.Close()
	cas.SetJSON("/api/user_activities", map[string]any{
		"activities": []map[string]any{{"id": 1, "type": "like", "created_at": 1700000000}},
	})

	c := newTestClient(t, api.URL(), func(cfg *Config) { cfg.CASBaseURL = cas.URL() })
	acts, err := c.GetNotifications(context.Background(), true, pagination.Exactly(1))
	require.NoError(t, err)

	require.Len(t, acts, 1)
	assert.Equal(t, "like", acts[0].Type)
	assert.Equal(t, 0, api.RequestCount())
	assert.Equal(t, "true", cas.Queries("/api/user_activities")[0].Get("important"))
}

func TestProgressReported(t *testing.T) {
	mock := followersFixture(120)
	defer mock.Close()

	var seen []pagination.Progress
	c := newTestClient(t, mock.URL(), func(cfg *Config) {
		cfg.Progress = func(p pagination.Progress) { seen = append(seen, p) }
	})

	_, err := c.GetUserFollowers(context.Background(), 9, pagination.Unbounded())
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, "followers", seen[2].List)
	assert.Equal(t, 120, seen[2].Fetched)
	assert.Equal(t, 120, seen[2].Target)
}

func TestGetUserActiveCall(t *testing.T) {
	mock := testutil.NewMockYay()
	defer mock.Close()
	mock.SetJSON("/v1/posts/active_call", map[string]any{"post": map[string]any{"id": 77}})
	mock.SetJSON("/v2/posts/77", map[string]any{"post": map[string]any{"id": 77, "text": "call"}})

	c := newTestClient(t, mock.URL())
	post, err := c.GetUserActiveCall(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "call", post.Text)

	mock.SetJSON("/v1/posts/active_call", map[string]any{})
	post, err = c.GetUserActiveCall(context.Background(), 2)
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestSendMessage_ResolvesRoomFromUser(t *testing.T) {
	mock := testutil.NewMockYay()
	defer mock.Close()
	mock.SetJSON("/v1/chat_rooms/new", map[string]any{"room_id": 12})
	mock.SetJSON("/v3/chat_rooms/12/messages/new", map[string]any{"id": 300, "room_id": 12, "text": "hi"})

	c := newTestClient(t, mock.URL())
	msg, err := c.SendMessage(context.Background(), "hi", 0, 5)
	require.NoError(t, err)

	assert.Equal(t, int64(300), msg.ID)
	assert.Equal(t, "5", mock.Queries("/v1/chat_rooms/new")[0].Get("with_user_id"))
	assert.Equal(t, "text", mock.Queries("/v3/chat_rooms/12/messages/new")[0].Get("message_type"))

	_, err = c.SendMessage(context.Background(), "hi", 0, 0)
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestCreatePost(t *testing.T) {
	mock := testutil.NewMockYay()
	defer mock.Close()
	mock.SetJSON("/v3/posts/new", map[string]any{"post": map[string]any{"id": 1, "text": "hello"}})

	c := newTestClient(t, mock.URL())
	post, err := c.CreatePost(context.Background(), "hello", PostOptions{Color: 2, GroupID: 6})
	require.NoError(t, err)
	assert.Equal(t, "hello", post.Text)

	q := mock.Queries("/v3/posts/new")[0]
	assert.Equal(t, "hello", q.Get("text"))
	assert.Equal(t, "2", q.Get("color"))
	assert.Equal(t, "6", q.Get("group_id"))

	_, err = c.CreatePost(context.Background(), "", PostOptions{})
	assert.ErrorIs(t, err, ErrEmptyPost)
}

func TestMutations(t *testing.T) {
	tests := []struct {
		name string
		path string
		call func(c *Client) (*Result, error)
	}{
		{"follow", "/v2/users/5/follow", func(c *Client) (*Result, error) { return c.FollowUser(context.Background(), 5) }},
		{"unfollow", "/v2/users/5/unfollow", func(c *Client) (*Result, error) { return c.UnfollowUser(context.Background(), 5) }},
		{"block", "/v1/users/5/block", func(c *Client) (*Result, error) { return c.BlockUser(context.Background(), 5) }},
		{"unblock", "/v2/users/5/unblock", func(c *Client) (*Result, error) { return c.UnblockUser(context.Background(), 5) }},
		{"like", "/v2/posts/like", func(c *Client) (*Result, error) { return c.LikePosts(context.Background(), 1, 2) }},
		{"unlike", "/v1/posts/1/unlike", func(c *Client) (*Result, error) { return c.UnlikePost(context.Background(), 1) }},
		{"delete post", "/v2/posts/mass_destroy", func(c *Client) (*Result, error) { return c.DeletePost(context.Background(), 1) }},
		{"join group", "/v1/groups/3/join", func(c *Client) (*Result, error) { return c.JoinGroup(context.Background(), 3) }},
		{"leave group", "/v1/groups/3/leave", func(c *Client) (*Result, error) { return c.LeaveGroup(context.Background(), 3) }},
		{"accept chat", "/v1/chat_rooms/accept_chat_request", func(c *Client) (*Result, error) { return c.AcceptChatRequest(context.Background(), 4) }},
		{"delete chat", "/v1/chat_rooms/mass_destroy", func(c *Client) (*Result, error) { return c.DeleteChatRoom(context.Background(), 4) }},
		{"delete group", "/v1/groups/3/delete", func(c *Client) (*Result, error) { return c.DeleteGroup(context.Background(), 3) }},
		{"transfer ownership", "/v1/groups/3/transfer", func(c *Client) (*Result, error) { return c.TransferGroupOwnership(context.Background(), 3, 5) }},
		{"undo transfer", "/v1/groups/3/transfer/withdraw", func(c *Client) (*Result, error) { return c.UndoGroupOwnershipTransfer(context.Background(), 3, 5) }},
		{"offer sub owner", "/v1/groups/3/deputize", func(c *Client) (*Result, error) { return c.OfferGroupSubOwner(context.Background(), 3, 5) }},
		{"undo sub owner offer", "/v1/groups/3/deputize/withdraw", func(c *Client) (*Result, error) { return c.UndoGroupSubOwnerOffer(context.Background(), 3, 5) }},
		{"fire sub owner", "/v1/groups/3/fire", func(c *Client) (*Result, error) { return c.FireGroupSubOwner(context.Background(), 3, 5) }},
		{"accept join", "/v1/groups/3/accept/5", func(c *Client) (*Result, error) { return c.AcceptGroupJoinRequest(context.Background(), 3, 5) }},
		{"decline join", "/v1/groups/3/decline/5", func(c *Client) (*Result, error) { return c.DeclineGroupJoinRequest(context.Background(), 3, 5) }},
		{"invite", "/v1/groups/3/invite", func(c *Client) (*Result, error) { return c.InviteToGroup(context.Background(), 3, 5, 6) }},
		{"pin group post", "/v2/posts/group_pinned_post", func(c *Client) (*Result, error) { return c.PinGroupPost(context.Background(), 3, 7) }},
		{"unpin group post", "/v2/posts/group_pinned_post", func(c *Client) (*Result, error) { return c.UnpinGroupPost(context.Background(), 3) }},
		{"ban", "/v1/groups/3/ban/5", func(c *Client) (*Result, error) { return c.BanGroupUser(context.Background(), 3, 5) }},
		{"unban", "/v1/groups/3/unban/5", func(c *Client) (*Result, error) { return c.UnbanGroupUser(context.Background(), 3, 5) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockYay()
			defer mock.Close()
			mock.SetJSON(tt.path, map[string]string{"result": "success"})

			c := newTestClient(t, mock.URL(), func(cfg *Config) { cfg.AccessToken = "tok" })
			res, err := tt.call(c)
			require.NoError(t, err)
			assert.Equal(t, "success", res.Result)
			assert.Equal(t, 1, mock.PathCount(tt.path))
		})
	}
}

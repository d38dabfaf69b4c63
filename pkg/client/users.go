package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/yay-client/pkg/pagination"
)

const (
	pathUsersV1 = "/v1/users"
	pathUsersV2 = "/v2/users"
	pathHima    = "/v2/web/users/hima_users"
)

// GetUser fetches one user profile.
func (c *Client) GetUser(ctx context.Context, userID int64) (*User, error) {
	var resp userResponse
	if err := c.Do(ctx, http.MethodGet, idPath(pathUsersV2, userID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func decodeFollows(resp usersResponse) pagination.Page[User] {
	return pagination.Page[User]{Items: resp.Users, Next: idCursor(resp.LastFollowID)}
}

func decodeUsersByLastID(resp usersResponse) pagination.Page[User] {
	return pagination.Page[User]{Items: resp.Users, Next: idCursor(resp.LastID)}
}

func decodeUsersByID(resp usersResponse) pagination.Page[User] {
	return pagination.Page[User]{
		Items: resp.Users,
		Next:  lastID(resp.Users, func(u User) int64 { return u.ID }),
	}
}

func decodeReviews(resp reviewsResponse) pagination.Page[Review] {
	return pagination.Page[Review]{
		Items: resp.Reviews,
		Next:  lastID(resp.Reviews, func(r Review) int64 { return r.ID }),
	}
}

// userCount returns a total hint read from the user's profile.
func (c *Client) userCount(userID int64, field func(*User) int) pagination.TotalFunc {
	return func(ctx context.Context) (int, error) {
		u, err := c.GetUser(ctx, userID)
		if err != nil {
			return 0, err
		}
		return field(u), nil
	}
}

// GetUserFollowers lists the followers of a user. An unset amount fetches
// all of them, using the profile's follower count as the target.
func (c *Client) GetUserFollowers(ctx context.Context, userID int64, amount pagination.Amount) ([]User, error) {
	fetch := listFetcher(c, idPath(pathUsersV2, userID, "web_followers"), nil, "from_follow_id", decodeFollows)
	total := c.userCount(userID, func(u *User) int { return u.FollowersCount })
	opts := c.listOptions("followers", pagination.PageSizeFollow, pagination.Unbounded(), total)
	return collect(ctx, fetch, opts, amount)
}

// GetUserFollowings lists the users a user follows. An unset amount fetches
// all of them.
func (c *Client) GetUserFollowings(ctx context.Context, userID int64, amount pagination.Amount) ([]User, error) {
	fetch := listFetcher(c, idPath(pathUsersV2, userID, "web_followings"), nil, "from_follow_id", decodeFollows)
	total := c.userCount(userID, func(u *User) int { return u.FollowingsCount })
	opts := c.listOptions("followings", pagination.PageSizeFollow, pagination.Unbounded(), total)
	return collect(ctx, fetch, opts, amount)
}

// GetLetters lists the letters a user received. An unset amount fetches
// all of them.
func (c *Client) GetLetters(ctx context.Context, userID int64, amount pagination.Amount) ([]Review, error) {
	base := url.Values{"not_active": []string{"false"}}
	fetch := listFetcher(c, idPath(pathUsersV1+"/reviews", userID), base, "from_id", decodeReviews)
	total := c.userCount(userID, func(u *User) int { return u.ReviewsCount })
	opts := c.listOptions("letters", pagination.PageSizeDefault, pagination.Unbounded(), total)
	return collect(ctx, fetch, opts, amount)
}

// GetFollowRequests lists pending follow requests to the logged-in user.
func (c *Client) GetFollowRequests(ctx context.Context, amount pagination.Amount) ([]User, error) {
	decode := func(resp usersResponse) pagination.Page[User] {
		return pagination.Page[User]{Items: resp.Users, Next: idCursor(resp.LastTimestamp)}
	}
	fetch := listFetcher(c, pathUsersV2+"/follow_requests", nil, "from_timestamp", decode)
	opts := c.listOptions("follow_requests", pagination.PageSizeFollow, onePage(pagination.PageSizeFollow), nil)
	return collect(ctx, fetch, opts, amount)
}

// GetBlockedUsers lists users blocked by the logged-in user.
func (c *Client) GetBlockedUsers(ctx context.Context, amount pagination.Amount) ([]User, error) {
	fetch := listFetcher(c, pathUsersV2+"/blocked", nil, "from_id", decodeUsersByLastID)
	opts := c.listOptions("blocked_users", pagination.PageSizeDefault, onePage(pagination.PageSizeDefault), nil)
	return collect(ctx, fetch, opts, amount)
}

// GetHimaUsers lists users currently marked as free to talk.
func (c *Client) GetHimaUsers(ctx context.Context, amount pagination.Amount) ([]User, error) {
	fetch := listFetcher(c, pathHima, nil, "from_hima_id", decodeUsersByID)
	opts := c.listOptions("hima_users", pagination.PageSizeDefault, onePage(pagination.PageSizeDefault), nil)
	return collect(ctx, fetch, opts, amount)
}

// GetUserActiveCall returns the call post a user is currently in, or nil
// when the user is not in a call.
func (c *Client) GetUserActiveCall(ctx context.Context, userID int64) (*Post, error) {
	var resp struct {
		Post *struct {
			ID int64 `json:"id"`
		} `json:"post"`
	}
	if err := c.Do(ctx, http.MethodGet, pathPostsV1+"/active_call", idParam("user_id", userID), &resp); err != nil {
		return nil, err
	}
	if resp.Post == nil || resp.Post.ID == 0 {
		return nil, nil
	}
	return c.GetPost(ctx, resp.Post.ID)
}

// FollowUser follows a user.
func (c *Client) FollowUser(ctx context.Context, userID int64) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, idPath(pathUsersV2, userID, "follow"), nil)
}

// UnfollowUser stops following a user.
func (c *Client) UnfollowUser(ctx context.Context, userID int64) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, idPath(pathUsersV2, userID, "unfollow"), nil)
}

// AcceptFollowRequest accepts a pending follow request.
func (c *Client) AcceptFollowRequest(ctx context.Context, userID int64) (*Result, error) {
	params := url.Values{"action": []string{"accept"}}
	return c.mutate(ctx, http.MethodPost, idPath(pathUsersV2, userID, "follow_request"), params)
}

// RejectFollowRequest rejects a pending follow request.
func (c *Client) RejectFollowRequest(ctx context.Context, userID int64) (*Result, error) {
	params := url.Values{"action": []string{"reject"}}
	return c.mutate(ctx, http.MethodPost, idPath(pathUsersV2, userID, "follow_request"), params)
}

// SendLetter leaves a letter on a user's profile.
func (c *Client) SendLetter(ctx context.Context, userID int64, comment string) (*Result, error) {
	params := url.Values{"comment": []string{comment}}
	return c.mutate(ctx, http.MethodPost, idPath(pathUsersV1+"/reviews", userID), params)
}

// BlockUser blocks a user.
func (c *Client) BlockUser(ctx context.Context, userID int64) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, idPath(pathUsersV1, userID, "block"), nil)
}

// UnblockUser unblocks a user.
func (c *Client) UnblockUser(ctx context.Context, userID int64) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, idPath(pathUsersV2, userID, "unblock"), nil)
}

// mutate sends a state-changing request and decodes the acknowledgement.
func (c *Client) mutate(ctx context.Context, method, path string, params url.Values) (*Result, error) {
	var res Result
	if err := c.Do(ctx, method, path, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func formatIDs(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}

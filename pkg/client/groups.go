package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/yay-client/pkg/pagination"
)

const (
	pathGroupsV1 = "/v1/groups"
	pathGroupsV2 = "/v2/groups"

	pathCallTimeline = pathPostsV2 + "/call_timeline"

	// groupCallPageSize is what the call timeline serves per page.
	groupCallPageSize = 20
)

// GetGroup fetches one group.
func (c *Client) GetGroup(ctx context.Context, groupID int64) (*Group, error) {
	var resp groupResponse
	if err := c.Do(ctx, http.MethodGet, idPath(pathGroupsV1, groupID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Group, nil
}

// GetJoinedGroups lists the groups a user has joined. The endpoint pages by
// page index rather than by record id, so every page is requested at the
// full page size: the server derives the offset from page*number, and a
// shorter last page would overlap the one before it. Collect trims the
// excess.
func (c *Client) GetJoinedGroups(ctx context.Context, userID int64, amount pagination.Amount) ([]Group, error) {
	fetch := func(ctx context.Context, cursor pagination.Cursor, _ int) (pagination.Page[Group], error) {
		page := 0
		if cursor.Present() {
			n, err := strconv.Atoi(string(cursor))
			if err != nil {
				return pagination.Page[Group]{}, fmt.Errorf("invalid page cursor %q: %w", cursor, err)
			}
			page = n
		}

		params := idParam("user_id", userID)
		params.Set("number", strconv.Itoa(pagination.PageSizeDefault))
		params.Set("page", strconv.Itoa(page))

		var resp groupsResponse
		if err := c.Do(ctx, http.MethodGet, pathGroupsV1+"/user_group_list", params, &resp); err != nil {
			return pagination.Page[Group]{}, err
		}
		return pagination.Page[Group]{
			Items: resp.Groups,
			Next:  pagination.Cursor(strconv.Itoa(page + 1)),
		}, nil
	}
	opts := c.listOptions("joined_groups", pagination.PageSizeDefault, onePage(pagination.PageSizeDefault), nil)
	return collect(ctx, fetch, opts, amount)
}

// GetGroupTimeline lists posts of a group.
func (c *Client) GetGroupTimeline(ctx context.Context, groupID int64, amount pagination.Amount) ([]Post, error) {
	fetch := listFetcher(c, pathPostsV2+"/group_timeline", idParam("group_id", groupID), "from_post_id", decodePosts)
	opts := c.listOptions("group_timeline", pagination.PageSizeDefault, onePage(pagination.PageSizeDefault), nil)
	return collect(ctx, fetch, opts, amount)
}

// GetGroupMembers lists the members of a group.
func (c *Client) GetGroupMembers(ctx context.Context, groupID int64, amount pagination.Amount) ([]GroupUser, error) {
	decode := func(resp groupUsersResponse) pagination.Page[GroupUser] {
		return pagination.Page[GroupUser]{
			Items: resp.GroupUsers,
			Next:  lastID(resp.GroupUsers, func(u GroupUser) int64 { return u.User.ID }),
		}
	}
	fetch := listFetcher(c, idPath(pathGroupsV2, groupID, "members"), nil, "from_id", decode)
	opts := c.listOptions("group_members", pagination.PageSizeDefault, onePage(pagination.PageSizeDefault), nil)
	return collect(ctx, fetch, opts, amount)
}

// GetGroupCall lists the call posts of a group, newest first.
func (c *Client) GetGroupCall(ctx context.Context, groupID int64, amount pagination.Amount) ([]Post, error) {
	fetch := listFetcher(c, pathCallTimeline, idParam("group_id", groupID), "from_post_id", decodePosts)
	opts := c.listOptions("group_call", groupCallPageSize, onePage(groupCallPageSize), nil)
	return collect(ctx, fetch, opts, amount)
}

// GetPendingGroupUsers lists users waiting for approval to join a private
// group. Group moderators only.
func (c *Client) GetPendingGroupUsers(ctx context.Context, groupID int64, amount pagination.Amount) ([]User, error) {
	base := url.Values{"mode": []string{"pending"}}
	fetch := listFetcher(c, idPath(pathGroupsV2, groupID, "members"), base, "from_id", decodeUsersByID)
	opts := c.listOptions("group_pending_users", pagination.PageSizeDefault, onePage(pagination.PageSizeDefault), nil)
	return collect(ctx, fetch, opts, amount)
}

// GetBannedGroupUsers lists users banned from a group. Group moderators only.
func (c *Client) GetBannedGroupUsers(ctx context.Context, groupID int64, amount pagination.Amount) ([]User, error) {
	fetch := listFetcher(c, idPath(pathGroupsV1, groupID, "ban_list"), nil, "from_id", decodeUsersByID)
	opts := c.listOptions("group_banned_users", pagination.PageSizeDefault, onePage(pagination.PageSizeDefault), nil)
	return collect(ctx, fetch, opts, amount)
}

// JoinGroup joins a group, or requests to join a private one.
func (c *Client) JoinGroup(ctx context.Context, groupID int64) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, idPath(pathGroupsV1, groupID, "join"), nil)
}

// LeaveGroup leaves a group.
func (c *Client) LeaveGroup(ctx context.Context, groupID int64) (*Result, error) {
	return c.mutate(ctx, http.MethodDelete, idPath(pathGroupsV1, groupID, "leave"), nil)
}

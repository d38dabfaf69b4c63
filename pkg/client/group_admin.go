package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
)

const pathGroupPinnedPost = pathPostsV2 + "/group_pinned_post"

// ErrEmptyGroupName is returned by CreateGroup for a blank name.
var ErrEmptyGroupName = errors.New("group name is empty")

// GroupSettings are the editable attributes of a group.
type GroupSettings struct {
	Name          string
	Description   string
	Guidelines    string
	CategoryID    int
	SubCategoryID int

	// Private requires moderator approval to join.
	Private bool

	CallTimelineDisplay    bool
	HideReportedPosts      bool
	AllowOwnershipTransfer bool

	// AllowThreadCreationBy is "member" or "moderator".
	AllowThreadCreationBy   string
	AllowMembersToPostMedia bool
	AllowMembersToPostURL   bool
	HideConferenceCall      bool

	// Secret hides the group from search.
	Secret             bool
	OnlyVerifiedAge    bool
	OnlyMobileVerified bool

	// Gender restricts who may join; -1 allows everyone.
	Gender int

	// GenerationGroupsLimit restricts the group to adults when non-zero.
	GenerationGroupsLimit int
}

// DefaultGroupSettings returns the settings the app uses for a new group.
func DefaultGroupSettings(name string) GroupSettings {
	return GroupSettings{
		Name:                    name,
		CategoryID:              21,
		CallTimelineDisplay:     true,
		AllowOwnershipTransfer:  true,
		AllowThreadCreationBy:   "member",
		AllowMembersToPostMedia: true,
		AllowMembersToPostURL:   true,
		Gender:                  -1,
	}
}

func (s GroupSettings) params() url.Values {
	p := url.Values{}
	p.Set("topic", s.Name)
	if s.Description != "" {
		p.Set("description", s.Description)
	}
	if s.Guidelines != "" {
		p.Set("guidelines", s.Guidelines)
	}
	p.Set("group_category_id", strconv.Itoa(s.CategoryID))
	if s.SubCategoryID != 0 {
		p.Set("sub_category_id", strconv.Itoa(s.SubCategoryID))
	}
	p.Set("is_private", strconv.FormatBool(s.Private))
	p.Set("call_timeline_display", strconv.FormatBool(s.CallTimelineDisplay))
	p.Set("hide_reported_posts", strconv.FormatBool(s.HideReportedPosts))
	p.Set("allow_ownership_transfer", strconv.FormatBool(s.AllowOwnershipTransfer))
	p.Set("allow_thread_creation_by", s.AllowThreadCreationBy)
	p.Set("allow_members_to_post_image_and_video", strconv.FormatBool(s.AllowMembersToPostMedia))
	p.Set("allow_members_to_post_url", strconv.FormatBool(s.AllowMembersToPostURL))
	p.Set("hide_conference_call", strconv.FormatBool(s.HideConferenceCall))
	p.Set("secret", strconv.FormatBool(s.Secret))
	p.Set("only_verified_age", strconv.FormatBool(s.OnlyVerifiedAge))
	p.Set("only_mobile_verified", strconv.FormatBool(s.OnlyMobileVerified))
	p.Set("gender", strconv.Itoa(s.Gender))
	p.Set("generation_groups_limit", strconv.Itoa(s.GenerationGroupsLimit))
	return p
}

// CreateGroup creates a group owned by the logged-in user.
func (c *Client) CreateGroup(ctx context.Context, settings GroupSettings) (*Result, error) {
	if settings.Name == "" {
		return nil, ErrEmptyGroupName
	}
	return c.mutate(ctx, http.MethodPost, pathGroupsV1+"/new", settings.params())
}

// DeleteGroup deletes a group. Owner only.
func (c *Client) DeleteGroup(ctx context.Context, groupID int64) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, idPath(pathGroupsV1, groupID, "delete"), nil)
}

// UpdateGroupSettings replaces the settings of a group. Owner only.
func (c *Client) UpdateGroupSettings(ctx context.Context, groupID int64, settings GroupSettings) (*Result, error) {
	if settings.Name == "" {
		return nil, ErrEmptyGroupName
	}
	return c.mutate(ctx, http.MethodPost, idPath(pathGroupsV1, groupID, "update"), settings.params())
}

// groupUserAction posts a moderation action that targets one member.
func (c *Client) groupUserAction(ctx context.Context, groupID, userID int64, segments ...string) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, idPath(pathGroupsV1, groupID, segments...), idParam("user_id", userID))
}

// TransferGroupOwnership offers ownership of a group to a member.
func (c *Client) TransferGroupOwnership(ctx context.Context, groupID, userID int64) (*Result, error) {
	return c.groupUserAction(ctx, groupID, userID, "transfer")
}

// UndoGroupOwnershipTransfer withdraws a pending ownership offer.
func (c *Client) UndoGroupOwnershipTransfer(ctx context.Context, groupID, userID int64) (*Result, error) {
	return c.groupUserAction(ctx, groupID, userID, "transfer", "withdraw")
}

// OfferGroupSubOwner offers the sub-owner role to a member.
func (c *Client) OfferGroupSubOwner(ctx context.Context, groupID, userID int64) (*Result, error) {
	return c.groupUserAction(ctx, groupID, userID, "deputize")
}

// UndoGroupSubOwnerOffer withdraws a pending sub-owner offer.
func (c *Client) UndoGroupSubOwnerOffer(ctx context.Context, groupID, userID int64) (*Result, error) {
	return c.groupUserAction(ctx, groupID, userID, "deputize", "withdraw")
}

// FireGroupSubOwner removes the sub-owner role from a member.
func (c *Client) FireGroupSubOwner(ctx context.Context, groupID, userID int64) (*Result, error) {
	return c.groupUserAction(ctx, groupID, userID, "fire")
}

// AcceptGroupJoinRequest admits a user waiting to join a private group.
func (c *Client) AcceptGroupJoinRequest(ctx context.Context, groupID, userID int64) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, idPath(pathGroupsV1, groupID, "accept", strconv.FormatInt(userID, 10)), nil)
}

// DeclineGroupJoinRequest rejects a user waiting to join a private group.
func (c *Client) DeclineGroupJoinRequest(ctx context.Context, groupID, userID int64) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, idPath(pathGroupsV1, groupID, "decline", strconv.FormatInt(userID, 10)), nil)
}

// InviteToGroup invites users to a group.
func (c *Client) InviteToGroup(ctx context.Context, groupID int64, userIDs ...int64) (*Result, error) {
	params := url.Values{"user_ids[]": formatIDs(userIDs)}
	return c.mutate(ctx, http.MethodPost, idPath(pathGroupsV1, groupID, "invite"), params)
}

// PinGroupPost pins a post to the top of a group's timeline.
func (c *Client) PinGroupPost(ctx context.Context, groupID, postID int64) (*Result, error) {
	params := idParam("group_id", groupID)
	params.Set("post_id", strconv.FormatInt(postID, 10))
	return c.mutate(ctx, http.MethodPut, pathGroupPinnedPost, params)
}

// UnpinGroupPost removes the pinned post of a group.
func (c *Client) UnpinGroupPost(ctx context.Context, groupID int64) (*Result, error) {
	return c.mutate(ctx, http.MethodDelete, pathGroupPinnedPost, idParam("group_id", groupID))
}

// BanGroupUser bans a user from a group.
func (c *Client) BanGroupUser(ctx context.Context, groupID, userID int64) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, idPath(pathGroupsV1, groupID, "ban", strconv.FormatInt(userID, 10)), nil)
}

// UnbanGroupUser lifts a ban.
func (c *Client) UnbanGroupUser(ctx context.Context, groupID, userID int64) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, idPath(pathGroupsV1, groupID, "unban", strconv.FormatInt(userID, 10)), nil)
}

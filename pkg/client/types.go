package client

// User is a Yay! account as returned in user lists and profiles.
type User struct {
	ID               int64  `json:"id"`
	Nickname         string `json:"nickname"`
	Biography        string `json:"biography,omitempty"`
	ProfileIconURL   string `json:"profile_icon,omitempty"`
	Gender           int    `json:"gender"`
	Prefecture       string `json:"prefecture,omitempty"`
	FollowersCount   int    `json:"followers_count"`
	FollowingsCount  int    `json:"followings_count"`
	PostsCount       int    `json:"posts_count"`
	ReviewsCount     int    `json:"reviews_count"`
	GroupsUsersCount int    `json:"groups_users_count"`
	FollowPending    bool   `json:"follow_pending"`
	FollowingStatus  bool   `json:"following"`
	FollowedBy       bool   `json:"followed_by"`
	Private          bool   `json:"is_private"`
	CreatedAt        int64  `json:"created_at"`
}

// Post is a timeline entry.
type Post struct {
	ID             int64    `json:"id"`
	Text           string   `json:"text"`
	Author         *User    `json:"user,omitempty"`
	GroupID        int64    `json:"group_id,omitempty"`
	ConversationID int64    `json:"conversation_id,omitempty"`
	InReplyTo      int64    `json:"in_reply_to,omitempty"`
	Color          int      `json:"color"`
	FontSize       int      `json:"font_size"`
	LikesCount     int      `json:"likes_count"`
	RepostsCount   int      `json:"reposts_count"`
	RepliesCount   int      `json:"reply_count"`
	Liked          bool     `json:"liked"`
	Hashtags       []string `json:"tags,omitempty"`
	CreatedAt      int64    `json:"created_at"`
}

// Group is a circle.
type Group struct {
	ID                 int64  `json:"id"`
	Topic              string `json:"topic"`
	Description        string `json:"description,omitempty"`
	OwnerID            int64  `json:"owner_id,omitempty"`
	MembersCount       int    `json:"groups_users_count"`
	PostsCount         int    `json:"posts_count"`
	Private            bool   `json:"secret"`
	Joined             bool   `json:"is_joined"`
	PendingJoinRequest bool   `json:"is_pending"`
	CreatedAt          int64  `json:"created_at"`
}

// GroupUser is a member entry of a group.
type GroupUser struct {
	User      User  `json:"user"`
	Moderator bool  `json:"is_moderator"`
	Pending   bool  `json:"pending_deputize"`
	JoinedAt  int64 `json:"created_at"`
}

// ChatRoom is a direct or group conversation.
type ChatRoom struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name,omitempty"`
	Group       bool     `json:"is_group"`
	Request     bool     `json:"is_request"`
	UnreadCount int      `json:"unread_count"`
	Members     []User   `json:"members,omitempty"`
	LastMessage *Message `json:"last_message,omitempty"`
	UpdatedAt   int64    `json:"updated_at"`
}

// Message is a chat message.
type Message struct {
	ID        int64  `json:"id"`
	RoomID    int64  `json:"room_id"`
	UserID    int64  `json:"user_id"`
	Text      string `json:"text"`
	Type      string `json:"message_type"`
	CreatedAt int64  `json:"created_at"`
}

// Review is a letter left on a user's profile.
type Review struct {
	ID         int64  `json:"id"`
	Comment    string `json:"comment"`
	Reviewer   *User  `json:"user,omitempty"`
	ReviewedID int64  `json:"reviewed_user_id,omitempty"`
	Mutual     bool   `json:"mutual_review"`
	CreatedAt  int64  `json:"created_at"`
}

// Activity is a notification entry.
type Activity struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	User      *User  `json:"user,omitempty"`
	Post      *Post  `json:"from_post,omitempty"`
	Group     *Group `json:"group,omitempty"`
	Important bool   `json:"important,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// Result is the acknowledgement returned by mutations.
type Result struct {
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

// Response envelopes. Each list endpoint names its records and cursor
// differently.

type userResponse struct {
	User User `json:"user"`
}

type usersResponse struct {
	Users         []User `json:"users"`
	LastFollowID  int64  `json:"last_follow_id"`
	LastID        int64  `json:"last_id"`
	LastTimestamp int64  `json:"last_timestamp"`
	NextPageValue string `json:"next_page_value"`
}

type reviewsResponse struct {
	Reviews []Review `json:"reviews"`
}

type postResponse struct {
	Post Post `json:"post"`
}

type postsResponse struct {
	Posts         []Post `json:"posts"`
	NextPageValue string `json:"next_page_value"`
}

type groupResponse struct {
	Group Group `json:"group"`
}

type groupsResponse struct {
	Groups []Group `json:"groups"`
}

type groupUsersResponse struct {
	GroupUsers []GroupUser `json:"group_users"`
}

type chatRoomResponse struct {
	Chat ChatRoom `json:"chat"`
}

type chatRoomsResponse struct {
	ChatRooms     []ChatRoom `json:"chat_rooms"`
	NextPageValue string     `json:"next_page_value"`
}

type messagesResponse struct {
	Messages []Message `json:"messages"`
}

type activitiesResponse struct {
	Activities []Activity `json:"activities"`
}

type roomIDResponse struct {
	RoomID int64 `json:"room_id"`
}

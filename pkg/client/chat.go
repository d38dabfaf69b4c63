package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/Sternrassler/yay-client/pkg/pagination"
)

const (
	pathChatRoomsV1 = "/v1/chat_rooms"
	pathChatRoomsV2 = "/v2/chat_rooms"
	pathChatRoomsV3 = "/v3/chat_rooms"
)

// ErrNoRecipient is returned by SendMessage when neither a room nor a user
// is given.
var ErrNoRecipient = errors.New("message needs a chat room or a user")

func decodeChatRooms(resp chatRoomsResponse) pagination.Page[ChatRoom] {
	return pagination.Page[ChatRoom]{Items: resp.ChatRooms, Next: pagination.Cursor(resp.NextPageValue)}
}

// GetChatRoom fetches one chat room.
func (c *Client) GetChatRoom(ctx context.Context, roomID int64) (*ChatRoom, error) {
	var resp chatRoomResponse
	if err := c.Do(ctx, http.MethodGet, idPath(pathChatRoomsV2, roomID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Chat, nil
}

// GetChatRooms lists the logged-in user's chat rooms, most recent first.
func (c *Client) GetChatRooms(ctx context.Context, amount pagination.Amount) ([]ChatRoom, error) {
	fetch := listFetcher(c, pathChatRoomsV1+"/main_list", nil, "from_timestamp", decodeChatRooms)
	opts := c.listOptions("chat_rooms", pagination.PageSizeDefault, onePage(pagination.PageSizeDefault), nil)
	return collect(ctx, fetch, opts, amount)
}

// GetChatRequests lists pending chat requests.
func (c *Client) GetChatRequests(ctx context.Context, amount pagination.Amount) ([]ChatRoom, error) {
	fetch := listFetcher(c, pathChatRoomsV1+"/request_list", nil, "from_timestamp", decodeChatRooms)
	opts := c.listOptions("chat_requests", pagination.PageSizeDefault, onePage(pagination.PageSizeDefault), nil)
	return collect(ctx, fetch, opts, amount)
}

// GetChatMessages lists messages of a room, newest first. The amount is
// honored across pages.
func (c *Client) GetChatMessages(ctx context.Context, roomID int64, amount pagination.Amount) ([]Message, error) {
	decode := func(resp messagesResponse) pagination.Page[Message] {
		return pagination.Page[Message]{
			Items: resp.Messages,
			Next:  lastID(resp.Messages, func(m Message) int64 { return m.ID }),
		}
	}
	fetch := listFetcher(c, idPath(pathChatRoomsV2, roomID, "messages"), nil, "from_message_id", decode)
	opts := c.listOptions("chat_messages", pagination.PageSizeDefault, onePage(pagination.PageSizeDefault), nil)
	return collect(ctx, fetch, opts, amount)
}

// GetChatMessagesWithUser lists messages of the direct chat room with a
// user, resolving the room first.
func (c *Client) GetChatMessagesWithUser(ctx context.Context, userID int64, amount pagination.Amount) ([]Message, error) {
	roomID, err := c.GetChatRoomIDFromUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.GetChatMessages(ctx, roomID, amount)
}

// GetChatRoomIDFromUser returns the id of the direct chat room with a user,
// creating the room if needed.
func (c *Client) GetChatRoomIDFromUser(ctx context.Context, userID int64) (int64, error) {
	var resp roomIDResponse
	if err := c.Do(ctx, http.MethodPost, pathChatRoomsV1+"/new", idParam("with_user_id", userID), &resp); err != nil {
		return 0, err
	}
	return resp.RoomID, nil
}

// SendMessage sends a text message to roomID, or to the direct room with
// userID when roomID is zero.
func (c *Client) SendMessage(ctx context.Context, text string, roomID, userID int64) (*Message, error) {
	if roomID == 0 {
		if userID == 0 {
			return nil, ErrNoRecipient
		}
		id, err := c.GetChatRoomIDFromUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		roomID = id
	}

	params := url.Values{}
	params.Set("message_type", "text")
	params.Set("text", text)

	var msg Message
	if err := c.Do(ctx, http.MethodPost, idPath(pathChatRoomsV3, roomID, "messages", "new"), params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AcceptChatRequest accepts a pending chat request.
func (c *Client) AcceptChatRequest(ctx context.Context, roomIDs ...int64) (*Result, error) {
	params := url.Values{"chat_room_ids[]": formatIDs(roomIDs)}
	return c.mutate(ctx, http.MethodPost, pathChatRoomsV1+"/accept_chat_request", params)
}

// DeleteChatRoom hides chat rooms from the logged-in user's list.
func (c *Client) DeleteChatRoom(ctx context.Context, roomIDs ...int64) (*Result, error) {
	params := url.Values{"chat_room_ids[]": formatIDs(roomIDs)}
	return c.mutate(ctx, http.MethodPost, pathChatRoomsV1+"/mass_destroy", params)
}

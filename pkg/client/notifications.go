package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/Sternrassler/yay-client/pkg/pagination"
)

// GetNotifications lists activities from the notification service. With
// important set only mentions, replies and similar are returned.
func (c *Client) GetNotifications(ctx context.Context, important bool, amount pagination.Amount) ([]Activity, error) {
	decode := func(resp activitiesResponse) pagination.Page[Activity] {
		return pagination.Page[Activity]{
			Items: resp.Activities,
			Next:  lastID(resp.Activities, func(a Activity) int64 { return a.CreatedAt }),
		}
	}
	base := url.Values{"important": []string{strconv.FormatBool(important)}}
	fetch := listFetcher(c, c.casBaseURL+"/api/user_activities", base, "from_timestamp", decode)
	opts := c.listOptions("notifications", pagination.PageSizeDefault, onePage(pagination.PageSizeDefault), nil)
	return collect(ctx, fetch, opts, amount)
}

package humhub

import "encoding/json"

// wireNotification is one list entry as HumHub sends it. Fields that
// vary in type between server versions stay raw and are decoded by
// normalize.
type wireNotification struct {
	ID           json.RawMessage `json:"id"`
	Message      string          `json:"message"`
	Seen         json.RawMessage `json:"seen"`
	Originator   *wireUser       `json:"originator"`
	CreatedAt    json.RawMessage `json:"created_at"`
	CreatedAtAlt json.RawMessage `json:"createdAt"`
	Source       *wireSource     `json:"source"`
	URL          string          `json:"url"`
}

// wireUser is the originator of a notification.
type wireUser struct {
	DisplayName    string `json:"display_name"`
	DisplayNameAlt string `json:"displayName"`
}

// wireSource is the content object a notification points at.
type wireSource struct {
	URL string `json:"url"`
}

// markSeenRequest is the body of the API mark-as-seen call. Numeric ids
// are sent as JSON numbers, matching what the list endpoint returned.
type markSeenRequest struct {
	NotificationIDs []interface{} `json:"notificationIds"`
}

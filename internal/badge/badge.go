// Package badge decides what the unread counter shows and when a new
// notification alert is raised.
package badge

import (
	"strconv"

	"github.com/nhle/humhub-notify/internal/model"
)

// ForCount returns the badge for n unread notifications. Zero is blank.
func ForCount(n int) model.Badge {
	b := model.Badge{Color: model.BadgeColorNormal}
	if n > 0 {
		b.Text = strconv.Itoa(n)
	}
	return b
}

// Error returns the badge shown after a failed fetch.
func Error() model.Badge {
	return model.Badge{Text: model.BadgeErrorText, Color: model.BadgeColorError}
}

// Decision is the outcome of one successful poll.
type Decision struct {
	Badge model.Badge

	// Notify is true when an alert should be raised for Item.
	Notify bool
	Item   model.Notification
}

// Evaluate applies the policy to the unread list of a successful poll.
// It is edge-triggered: an alert fires only when the count rose above
// previous, so repeated polls with an unchanged count stay silent.
func Evaluate(previous int, unread []model.Notification, notifyOnNew bool) Decision {
	count := len(unread)
	d := Decision{Badge: ForCount(count)}
	if notifyOnNew && count > previous && count > 0 {
		d.Notify = true
		d.Item = unread[0]
	}
	return d
}

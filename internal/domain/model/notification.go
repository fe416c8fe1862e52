package model

import "time"

// NotificationKind classifies an outbound chat post.
type NotificationKind string

const (
	NotifyReply         NotificationKind = "reply"
	NotifyDuplicate     NotificationKind = "duplicate"
	NotifyDailyWinners  NotificationKind = "daily_winners"
	NotifyWeeklyWinners NotificationKind = "weekly_winners"
	NotifyRatingUpdate  NotificationKind = "rating_update"
)

// Notification is a message the bot posts back into the chat.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Text      string           `json:"text"`
	Game      int              `json:"game,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

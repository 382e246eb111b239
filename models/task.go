package models

// Required-action tags. ActionDailyCheck marks a task completable once per
// calendar day; every other tag is completable once ever.
const (
	ActionDailyCheck      = "daily_check"
	ActionInviteFriends   = "invite_friends"
	ActionCompleteProfile = "complete_profile"
	ActionJoinGroup       = "join_group"
	ActionShareSocial     = "share_social"
)

type Task struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	Title          string  `gorm:"size:100;uniqueIndex;not null" json:"title"`
	Description    string  `gorm:"size:255" json:"description"`
	Reward         float64 `gorm:"type:decimal(15,2);not null" json:"reward"`
	RequiredAction string  `gorm:"column:required_action;size:50;not null" json:"required_action"`
}

func (Task) TableName() string {
	return "tasks"
}

// Daily reports whether the task resets every calendar day.
func (t Task) Daily() bool {
	return t.RequiredAction == ActionDailyCheck
}

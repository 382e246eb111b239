package models

import "time"

// Referral records who invited whom. A referred user appears at most once;
// the unique index backs the one-bonus-per-referred-user rule.
type Referral struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReferrerID int64     `gorm:"column:referrer_id;not null;index" json:"referrer_id"`
	ReferredID int64     `gorm:"column:referred_id;not null;uniqueIndex" json:"referred_id"`
	Date       time.Time `gorm:"autoCreateTime" json:"date"`
}

func (Referral) TableName() string {
	return "referrals"
}

package models

import "time"

type User struct {
	UserID     int64      `gorm:"column:user_id;primaryKey;autoIncrement:false" json:"user_id"`
	Username   string     `gorm:"size:100" json:"username"`
	Balance    float64    `gorm:"type:decimal(15,8);default:0" json:"balance"`
	MiningRate float64    `gorm:"column:mining_rate;type:decimal(15,8)" json:"mining_rate"`
	LastMined  *time.Time `gorm:"column:last_mined" json:"last_mined"`
	ReferrerID *int64     `gorm:"column:referrer_id" json:"referrer_id,omitempty"`
	JoinDate   time.Time  `gorm:"column:join_date;autoCreateTime" json:"join_date"`
}

func (User) TableName() string {
	return "users"
}

package database

import (
	"github.com/djgianterkancelik-svg/xentix/models"

	"gorm.io/gorm"
)

// Migrate creates or updates the four ledger tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Referral{},
		&models.Task{},
		&models.CompletedTask{},
	)
}

// SeedTasks inserts the fixed task catalog. Keyed on title, so re-running
// at every startup is safe.
func SeedTasks(db *gorm.DB) error {
	tasks := []models.Task{
		{Title: "Daily Check-in", Description: "Open the app daily to mine XTX", Reward: 0.5, RequiredAction: models.ActionDailyCheck},
		{Title: "Invite Friends", Description: "Invite 3 friends to join Xentix", Reward: 2.0, RequiredAction: models.ActionInviteFriends},
		{Title: "Complete Profile", Description: "Fill out your mining profile", Reward: 1.0, RequiredAction: models.ActionCompleteProfile},
		{Title: "Join Community", Description: "Join the Xentix Telegram group", Reward: 1.5, RequiredAction: models.ActionJoinGroup},
		{Title: "Share on Social", Description: "Share about Xentix on social media", Reward: 2.5, RequiredAction: models.ActionShareSocial},
	}
	for _, task := range tasks {
		if err := db.Where("title = ?", task.Title).FirstOrCreate(&task).Error; err != nil {
			return err
		}
	}
	return nil
}

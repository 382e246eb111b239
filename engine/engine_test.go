package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/djgianterkancelik-svg/xentix/database"
	"github.com/djgianterkancelik-svg/xentix/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection so the in-memory database survives the whole test
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedTasks(db))
	return New(db, "XentixMiningBot"), db
}

func taskByAction(t *testing.T, db *gorm.DB, action string) models.Task {
	t.Helper()
	var task models.Task
	require.NoError(t, db.Where("required_action = ?", action).First(&task).Error)
	return task
}

func userBalance(t *testing.T, db *gorm.DB, userID int64) float64 {
	t.Helper()
	var user models.User
	require.NoError(t, db.Where("user_id = ?", userID).First(&user).Error)
	return user.Balance
}

func backdateLastMined(t *testing.T, db *gorm.DB, userID int64, d time.Duration) {
	t.Helper()
	require.NoError(t, db.Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("last_mined", time.Now().Add(-d)).Error)
}

func TestRegisterIsIdempotent(t *testing.T) {
	eng, db := newTestEngine(t)

	created, err := eng.Register(42, "alice", nil)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = eng.Register(42, "alice2", nil)
	require.NoError(t, err)
	assert.False(t, created)

	var user models.User
	require.NoError(t, db.Where("user_id = ?", 42).First(&user).Error)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 0.0, user.Balance)
	assert.Equal(t, DefaultMiningRate, user.MiningRate)
	require.NotNil(t, user.LastMined)
}

func TestRegisterWithReferrer(t *testing.T) {
	eng, db := newTestEngine(t)

	_, err := eng.Register(42, "alice", nil)
	require.NoError(t, err)

	referrer := int64(42)
	created, err := eng.Register(7, "bob", &referrer)
	require.NoError(t, err)
	assert.True(t, created)

	var referral models.Referral
	require.NoError(t, db.Where("referred_id = ?", 7).First(&referral).Error)
	assert.Equal(t, int64(42), referral.ReferrerID)
	assert.Equal(t, ReferralBonus, userBalance(t, db, 42))
}

func TestRegisterWithDanglingReferrer(t *testing.T) {
	eng, db := newTestEngine(t)

	// referrer 999 does not exist; registration still succeeds and the
	// referral row is recorded
	referrer := int64(999)
	created, err := eng.Register(7, "bob", &referrer)
	require.NoError(t, err)
	assert.True(t, created)

	var count int64
	require.NoError(t, db.Model(&models.Referral{}).Where("referred_id = ?", 7).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMineUnknownUser(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Mine(123)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMineRespectsCooldown(t *testing.T) {
	eng, db := newTestEngine(t)

	_, err := eng.Register(42, "alice", nil)
	require.NoError(t, err)

	// last_mined was set at registration, so mining immediately is rejected
	_, err = eng.Mine(42)
	var cooldown *CooldownError
	require.ErrorAs(t, err, &cooldown)
	assert.Greater(t, cooldown.SecondsRemaining, 0)
	assert.LessOrEqual(t, cooldown.SecondsRemaining, 60)
	assert.Equal(t, 0.0, userBalance(t, db, 42))
}

func TestMineAfterCooldown(t *testing.T) {
	eng, db := newTestEngine(t)

	_, err := eng.Register(42, "alice", nil)
	require.NoError(t, err)
	backdateLastMined(t, db, 42, 2*time.Minute)

	res, err := eng.Mine(42)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Amount, DefaultMiningRate*0.75)
	assert.Less(t, res.Amount, DefaultMiningRate*1.25)
	assert.InDelta(t, res.Amount, userBalance(t, db, 42), 1e-9)

	// cooldown restarts
	_, err = eng.Mine(42)
	var cooldown *CooldownError
	assert.ErrorAs(t, err, &cooldown)
}

func TestCompleteTaskOnce(t *testing.T) {
	eng, db := newTestEngine(t)

	_, err := eng.Register(42, "alice", nil)
	require.NoError(t, err)
	task := taskByAction(t, db, models.ActionInviteFriends)

	res, err := eng.CompleteTask(42, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, res.Title)
	assert.Equal(t, task.Reward, res.Reward)
	assert.Equal(t, task.Reward, userBalance(t, db, 42))

	var user models.User
	require.NoError(t, db.Where("user_id = ?", 42).First(&user).Error)
	assert.InDelta(t, DefaultMiningRate+task.Reward*RateBoost, user.MiningRate, 1e-9)

	_, err = eng.CompleteTask(42, task.ID)
	assert.ErrorIs(t, err, ErrTaskCompleted)
	assert.Equal(t, task.Reward, userBalance(t, db, 42))
}

func TestCompleteDailyTaskOncePerDay(t *testing.T) {
	eng, db := newTestEngine(t)

	_, err := eng.Register(42, "alice", nil)
	require.NoError(t, err)
	daily := taskByAction(t, db, models.ActionDailyCheck)

	// completed yesterday, so today is a fresh day
	require.NoError(t, db.Create(&models.CompletedTask{
		UserID:         42,
		TaskID:         daily.ID,
		CompletionDate: time.Now().AddDate(0, 0, -1),
	}).Error)

	_, err = eng.CompleteTask(42, daily.ID)
	require.NoError(t, err)

	_, err = eng.CompleteTask(42, daily.ID)
	assert.ErrorIs(t, err, ErrTaskCompletedToday)
}

func TestCompleteTaskUnknownTask(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.CompleteTask(42, 9999)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestCompleteTaskUnknownUser(t *testing.T) {
	eng, db := newTestEngine(t)

	task := taskByAction(t, db, models.ActionJoinGroup)
	_, err := eng.CompleteTask(123, task.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	var count int64
	require.NoError(t, db.Model(&models.CompletedTask{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestAvailableTasks(t *testing.T) {
	eng, db := newTestEngine(t)

	_, err := eng.Register(42, "alice", nil)
	require.NoError(t, err)

	tasks, err := eng.AvailableTasks(42)
	require.NoError(t, err)
	assert.Len(t, tasks, 5)

	// a completed one-time task disappears permanently
	oneTime := taskByAction(t, db, models.ActionInviteFriends)
	_, err = eng.CompleteTask(42, oneTime.ID)
	require.NoError(t, err)

	tasks, err = eng.AvailableTasks(42)
	require.NoError(t, err)
	assert.Len(t, tasks, 4)
	for _, task := range tasks {
		assert.NotEqual(t, oneTime.ID, task.ID)
	}

	// a daily task completed today disappears until tomorrow
	daily := taskByAction(t, db, models.ActionDailyCheck)
	_, err = eng.CompleteTask(42, daily.ID)
	require.NoError(t, err)

	tasks, err = eng.AvailableTasks(42)
	require.NoError(t, err)
	assert.Len(t, tasks, 3)

	// but a daily task completed on a prior day comes back
	require.NoError(t, db.Model(&models.CompletedTask{}).
		Where("user_id = ? AND task_id = ?", 42, daily.ID).
		Update("completion_date", time.Now().AddDate(0, 0, -1)).Error)

	tasks, err = eng.AvailableTasks(42)
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	found := false
	for _, task := range tasks {
		if task.ID == daily.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestStats(t *testing.T) {
	eng, db := newTestEngine(t)

	_, err := eng.Stats(42)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = eng.Register(42, "alice", nil)
	require.NoError(t, err)
	referrer := int64(42)
	_, err = eng.Register(7, "bob", &referrer)
	require.NoError(t, err)

	task := taskByAction(t, db, models.ActionCompleteProfile)
	_, err = eng.CompleteTask(42, task.ID)
	require.NoError(t, err)

	stats, err := eng.Stats(42)
	require.NoError(t, err)
	assert.Equal(t, "alice", stats.Username)
	assert.Equal(t, int64(1), stats.Referrals)
	assert.Equal(t, int64(1), stats.CompletedTasks)
	assert.Equal(t, ReferralBonus+task.Reward, stats.Balance)
	assert.NotNil(t, stats.LastMined)
}

func TestReferrals(t *testing.T) {
	eng, db := newTestEngine(t)

	_, err := eng.Register(42, "alice", nil)
	require.NoError(t, err)

	referrals, err := eng.Referrals(42)
	require.NoError(t, err)
	assert.Empty(t, referrals)

	referrer := int64(42)
	_, err = eng.Register(7, "bob", &referrer)
	require.NoError(t, err)
	_, err = eng.Register(8, "carol", &referrer)
	require.NoError(t, err)

	// widen the gap so the DESC ordering is observable
	require.NoError(t, db.Model(&models.Referral{}).
		Where("referred_id = ?", 7).
		Update("date", time.Now().Add(-time.Hour)).Error)

	referrals, err = eng.Referrals(42)
	require.NoError(t, err)
	require.Len(t, referrals, 2)
	assert.Equal(t, "carol", referrals[0].Username)
	assert.Equal(t, "bob", referrals[1].Username)
}

func TestReferralLink(t *testing.T) {
	eng, _ := newTestEngine(t)

	assert.Equal(t, "https://t.me/XentixMiningBot?start=ref42", eng.ReferralLink(42))
}

func TestBalanceAndRateStayNonNegative(t *testing.T) {
	eng, db := newTestEngine(t)

	_, err := eng.Register(42, "alice", nil)
	require.NoError(t, err)
	backdateLastMined(t, db, 42, 2*time.Minute)

	_, _ = eng.Mine(42)
	_, _ = eng.Mine(42)
	for id := uint(1); id <= 5; id++ {
		_, _ = eng.CompleteTask(42, id)
		_, _ = eng.CompleteTask(42, id)
	}

	var user models.User
	require.NoError(t, db.Where("user_id = ?", 42).First(&user).Error)
	assert.GreaterOrEqual(t, user.Balance, 0.0)
	assert.GreaterOrEqual(t, user.MiningRate, 0.0)
}

func TestSeedTasksIsIdempotent(t *testing.T) {
	_, db := newTestEngine(t)

	require.NoError(t, database.SeedTasks(db))
	var count int64
	require.NoError(t, db.Model(&models.Task{}).Count(&count).Error)
	assert.Equal(t, int64(5), count)
}

func TestCooldownErrorMessage(t *testing.T) {
	err := &CooldownError{SecondsRemaining: 17}
	assert.Equal(t, "you can mine again in 17 seconds", err.Error())
	var cooldown *CooldownError
	assert.True(t, errors.As(error(err), &cooldown))
}

package engine

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/djgianterkancelik-svg/xentix/models"

	"gorm.io/gorm"
)

const (
	// DefaultMiningRate is the rate every new user starts with, in XTX per mine.
	DefaultMiningRate = 0.01
	// MineCooldown is the minimum wait between two mine actions.
	MineCooldown = 60 * time.Second
	// ReferralBonus is credited to the referrer once per referred user.
	ReferralBonus = 1.0
	// RateBoost scales a task reward into a permanent mining-rate increase.
	RateBoost = 0.001
)

// Engine holds the accounting rules of the mining simulator. All state lives
// in the injected ledger database; the engine itself is stateless, so one
// instance is shared by the bot and the HTTP adapters.
type Engine struct {
	db          *gorm.DB
	botUsername string
}

func New(db *gorm.DB, botUsername string) *Engine {
	return &Engine{db: db, botUsername: botUsername}
}

type MineResult struct {
	Amount  float64 `json:"amount"`
	Balance float64 `json:"balance"`
}

type Stats struct {
	UserID         int64      `json:"user_id"`
	Username       string     `json:"username"`
	Balance        float64    `json:"balance"`
	MiningRate     float64    `json:"mining_rate"`
	Referrals      int64      `json:"referrals"`
	CompletedTasks int64      `json:"completed_tasks"`
	LastMined      *time.Time `json:"last_mined"`
	JoinDate       time.Time  `json:"join_date"`
}

type TaskResult struct {
	TaskID uint    `json:"task_id"`
	Title  string  `json:"title"`
	Reward float64 `json:"reward"`
}

type ReferralInfo struct {
	Username string    `json:"username"`
	Date     time.Time `json:"date"`
}

// Register creates the user on first contact and reports whether it did.
// An existing user is left untouched. A supplied referrer id records the
// referral and credits the bonus in the same transaction; a referrer id that
// matches no user is accepted silently and simply credits nobody.
func (e *Engine) Register(userID int64, username string, referrerID *int64) (bool, error) {
	var existing models.User
	err := e.db.Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	now := time.Now()
	user := models.User{
		UserID:     userID,
		Username:   username,
		MiningRate: DefaultMiningRate,
		LastMined:  &now,
		ReferrerID: referrerID,
	}
	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if referrerID == nil {
			return nil
		}
		referral := models.Referral{ReferrerID: *referrerID, ReferredID: userID}
		if err := tx.Create(&referral).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("user_id = ?", *referrerID).
			Update("balance", gorm.Expr("balance + ?", ReferralBonus)).Error
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Mine credits miningRate scaled by a uniform factor in [0.75, 1.25) and
// resets the cooldown. The balance update is conditional on last_mined still
// being outside the cooldown window, so two racing requests cannot both
// collect.
func (e *Engine) Mine(userID int64) (*MineResult, error) {
	var user models.User
	if err := e.db.Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	now := time.Now()
	if user.LastMined != nil {
		if elapsed := now.Sub(*user.LastMined); elapsed < MineCooldown {
			remaining := int(math.Ceil((MineCooldown - elapsed).Seconds()))
			return nil, &CooldownError{SecondsRemaining: remaining}
		}
	}

	amount := user.MiningRate * (0.75 + rand.Float64()*0.5)
	cutoff := now.Add(-MineCooldown)
	res := e.db.Model(&models.User{}).
		Where("user_id = ? AND (last_mined IS NULL OR last_mined <= ?)", userID, cutoff).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", amount),
			"last_mined": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// A concurrent mine for the same user won the window.
		return nil, &CooldownError{SecondsRemaining: int(MineCooldown.Seconds())}
	}
	return &MineResult{Amount: amount, Balance: user.Balance + amount}, nil
}

// Stats aggregates the user row with referral and completed-task counts.
func (e *Engine) Stats(userID int64) (*Stats, error) {
	var user models.User
	if err := e.db.Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var referrals int64
	if err := e.db.Model(&models.Referral{}).Where("referrer_id = ?", userID).Count(&referrals).Error; err != nil {
		return nil, err
	}
	var completed int64
	if err := e.db.Model(&models.CompletedTask{}).Where("user_id = ?", userID).Count(&completed).Error; err != nil {
		return nil, err
	}

	return &Stats{
		UserID:         user.UserID,
		Username:       user.Username,
		Balance:        user.Balance,
		MiningRate:     user.MiningRate,
		Referrals:      referrals,
		CompletedTasks: completed,
		LastMined:      user.LastMined,
		JoinDate:       user.JoinDate,
	}, nil
}

// AvailableTasks returns every task the user may complete right now: all
// tasks not yet completed, plus daily tasks whose latest completion falls on
// an earlier calendar day.
func (e *Engine) AvailableTasks(userID int64) ([]models.Task, error) {
	var tasks []models.Task
	if err := e.db.Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	var completions []models.CompletedTask
	if err := e.db.Where("user_id = ?", userID).Find(&completions).Error; err != nil {
		return nil, err
	}

	latest := make(map[uint]time.Time)
	for _, c := range completions {
		if c.CompletionDate.After(latest[c.TaskID]) {
			latest[c.TaskID] = c.CompletionDate
		}
	}

	today := dayStart(time.Now())
	available := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		last, done := latest[t.ID]
		if !done || (t.Daily() && last.Before(today)) {
			available = append(available, t)
		}
	}
	return available, nil
}

// CompleteTask records the completion, credits the reward and bumps the
// mining rate by reward×0.001, all in one transaction. Non-daily tasks
// complete once ever, daily tasks once per calendar day.
func (e *Engine) CompleteTask(userID int64, taskID uint) (*TaskResult, error) {
	var task models.Task
	if err := e.db.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	query := e.db.Model(&models.CompletedTask{}).Where("user_id = ? AND task_id = ?", userID, taskID)
	if task.Daily() {
		start := dayStart(time.Now())
		query = query.Where("completion_date >= ? AND completion_date < ?", start, start.AddDate(0, 0, 1))
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		if task.Daily() {
			return nil, ErrTaskCompletedToday
		}
		return nil, ErrTaskCompleted
	}

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.CompletedTask{UserID: userID, TaskID: taskID}).Error; err != nil {
			return err
		}
		res := tx.Model(&models.User{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"balance":     gorm.Expr("balance + ?", task.Reward),
				"mining_rate": gorm.Expr("mining_rate + ?", task.Reward*RateBoost),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &TaskResult{TaskID: task.ID, Title: task.Title, Reward: task.Reward}, nil
}

// Referrals lists who the user invited, newest first.
func (e *Engine) Referrals(userID int64) ([]ReferralInfo, error) {
	referrals := make([]ReferralInfo, 0)
	err := e.db.Model(&models.Referral{}).
		Select("users.username, referrals.date").
		Joins("JOIN users ON users.user_id = referrals.referred_id").
		Where("referrals.referrer_id = ?", userID).
		Order("referrals.date DESC").
		Scan(&referrals).Error
	if err != nil {
		return nil, err
	}
	return referrals, nil
}

// ReferralLink builds the deep link a user shares to earn referral bonuses.
func (e *Engine) ReferralLink(userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=ref%d", e.botUsername, userID)
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/djgianterkancelik-svg/xentix/engine"
	"github.com/djgianterkancelik-svg/xentix/utils"

	"github.com/gorilla/mux"
)

// MinerController exposes the accounting engine to the web front-end.
type MinerController struct {
	engine *engine.Engine
}

func NewMinerController(eng *engine.Engine) *MinerController {
	return &MinerController{engine: eng}
}

func userIDFromPath(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["user_id"]
	return strconv.ParseInt(raw, 10, 64)
}

// GET /api/user/{user_id}
func (c *MinerController) GetUserStats(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromPath(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	stats, err := c.engine.Stats(userID)
	if err != nil {
		c.writeEngineError(w, r, err)
		return
	}
	utils.WriteData(w, "Successfully", map[string]interface{}{
		"user_id":         stats.UserID,
		"username":        stats.Username,
		"balance":         utils.RoundFloat(stats.Balance, 4),
		"mining_rate":     utils.RoundFloat(stats.MiningRate, 4),
		"referrals":       stats.Referrals,
		"completed_tasks": stats.CompletedTasks,
		"last_mined":      stats.LastMined,
		"join_date":       stats.JoinDate,
	})
}

// POST /api/mine
func (c *MinerController) MineTokens(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 {
		utils.WriteError(w, http.StatusBadRequest, "User ID required")
		return
	}
	res, err := c.engine.Mine(req.UserID)
	if err != nil {
		c.writeEngineError(w, r, err)
		return
	}
	utils.WriteData(w, fmt.Sprintf("Successfully mined %.4f XTX!", res.Amount), map[string]interface{}{
		"amount":  res.Amount,
		"balance": utils.RoundFloat(res.Balance, 4),
	})
}

// GET /api/tasks/{user_id}
func (c *MinerController) GetTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromPath(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	tasks, err := c.engine.AvailableTasks(userID)
	if err != nil {
		c.writeEngineError(w, r, err)
		return
	}
	utils.WriteData(w, "Successfully", tasks)
}

// POST /api/complete-task
func (c *MinerController) CompleteTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64 `json:"user_id"`
		TaskID uint  `json:"task_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 || req.TaskID == 0 {
		utils.WriteError(w, http.StatusBadRequest, "User ID and Task ID required")
		return
	}
	res, err := c.engine.CompleteTask(req.UserID, req.TaskID)
	if err != nil {
		c.writeEngineError(w, r, err)
		return
	}
	utils.WriteData(w, fmt.Sprintf("Completed task: %s. Earned %.2f XTX!", res.Title, res.Reward), res)
}

// GET /api/referrals/{user_id}
func (c *MinerController) GetReferrals(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromPath(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	referrals, err := c.engine.Referrals(userID)
	if err != nil {
		c.writeEngineError(w, r, err)
		return
	}
	utils.WriteData(w, "Successfully", referrals)
}

// writeEngineError maps engine outcomes onto HTTP responses. Cooldown and
// already-completed are business outcomes, reported as success=false with a
// 200 like the rest of the envelope; store faults log and render generically.
func (c *MinerController) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var cooldown *engine.CooldownError
	switch {
	case errors.Is(err, engine.ErrUserNotFound):
		utils.WriteError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, engine.ErrTaskNotFound):
		utils.WriteError(w, http.StatusNotFound, "Task not found")
	case errors.As(err, &cooldown):
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
			Success: false,
			Message: fmt.Sprintf("You can mine again in %d seconds", cooldown.SecondsRemaining),
			Data:    map[string]interface{}{"time_remaining": cooldown.SecondsRemaining},
		})
	case errors.Is(err, engine.ErrTaskCompleted):
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: false, Message: "Task already completed"})
	case errors.Is(err, engine.ErrTaskCompletedToday):
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: false, Message: "Daily task already completed today"})
	default:
		log.Printf("[api] %s %s: %v", r.Method, r.URL.Path, err)
		utils.WriteError(w, http.StatusInternalServerError, "Server error")
	}
}

package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/deadman-dev/deadman/db"
	"github.com/deadman-dev/deadman/internal/logger"
	"github.com/deadman-dev/deadman/internal/models"
	"github.com/deadman-dev/deadman/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateSwitchRequest struct {
	Title                  string `json:"title" binding:"required,max=100"`
	Message                string `json:"message" binding:"required"`
	InactivityDurationDays int    `json:"inactivity_duration_days" binding:"required,min=1"`
	ActionType             string `json:"action_type" binding:"required"`
	ActionTarget           string `json:"action_target" binding:"required"`
	ActionDescription      string `json:"action_description"`
}

type UpdateSwitchRequest struct {
	Title                  *string `json:"title" binding:"omitempty,max=100"`
	Message                *string `json:"message"`
	InactivityDurationDays *int    `json:"inactivity_duration_days" binding:"omitempty,min=1"`
}

type ActionResponse struct {
	ID          uint   `json:"id"`
	Type        string `json:"type"`
	Target      string `json:"target"`
	Description string `json:"description,omitempty"`
}

type SwitchResponse struct {
	ID                     uint           `json:"id"`
	Title                  string         `json:"title"`
	Message                string         `json:"message"`
	InactivityDurationDays int            `json:"inactivity_duration_days"`
	LastCheckin            time.Time      `json:"last_checkin"`
	NextTriggerAt          time.Time      `json:"next_trigger_at"`
	CreatedAt              time.Time      `json:"created_at"`
	Status                 string         `json:"status"`
	Action                 ActionResponse `json:"action"`
}

type CheckInResponse struct {
	ID        uint      `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func toSwitchResponse(sw models.Switch) SwitchResponse {
	return SwitchResponse{
		ID:                     sw.ID,
		Title:                  sw.Title,
		Message:                sw.Message,
		InactivityDurationDays: sw.InactivityDurationDays,
		LastCheckin:            sw.LastCheckin,
		NextTriggerAt:          sw.NextTriggerAt,
		CreatedAt:              sw.CreatedAt,
		Status:                 string(sw.Status),
		Action: ActionResponse{
			ID:          sw.Action.ID,
			Type:        string(sw.Action.Type),
			Target:      sw.Action.Target,
			Description: sw.Action.Description,
		},
	}
}

// findOwnedSwitch loads a switch scoped to its owner, with the action
// preloaded.
func findOwnedSwitch(ctx *gin.Context) (models.Switch, bool) {
	var sw models.Switch

	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return sw, false
	}

	switchID, err := utils.GetSwitchID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return sw, false
	}

	if err := db.DB.Preload("Action").
		Where("id = ? AND user_id = ?", switchID, userID).
		First(&sw).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Switch not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve switch"})
		}
		return sw, false
	}

	return sw, true
}

func CreateSwitch(ctx *gin.Context) {
	var req CreateSwitchRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	actionType := models.ActionType(req.ActionType)

	if err := utils.ValidateAction(actionType, req.ActionTarget); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()

	sw := models.Switch{
		UserID:                 userID,
		Title:                  req.Title,
		Message:                req.Message,
		InactivityDurationDays: req.InactivityDurationDays,
		LastCheckin:            now,
		Status:                 models.SwitchStatusActive,
		Action: models.Action{
			Type:        actionType,
			Target:      req.ActionTarget,
			Description: req.ActionDescription,
		},
	}
	sw.RecomputeNextTrigger()

	// The action row is created in the same transaction through the
	// association; it lives and dies with the switch.
	if err := db.DB.Create(&sw).Error; err != nil {
		logger.Named("handlers").Error("Failed to create switch", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create switch"})
		return
	}

	ctx.JSON(http.StatusCreated, toSwitchResponse(sw))
}

func ListSwitches(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var switches []models.Switch

	if err := db.DB.Preload("Action").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&switches).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve switches"})
		return
	}

	response := make([]SwitchResponse, 0, len(switches))
	for _, sw := range switches {
		response = append(response, toSwitchResponse(sw))
	}

	ctx.JSON(http.StatusOK, response)
}

func GetSwitch(ctx *gin.Context) {
	sw, ok := findOwnedSwitch(ctx)

	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, toSwitchResponse(sw))
}

func UpdateSwitch(ctx *gin.Context) {
	sw, ok := findOwnedSwitch(ctx)

	if !ok {
		return
	}

	var req UpdateSwitchRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := make(map[string]interface{})

	if req.Title != nil {
		updates["title"] = *req.Title
	}

	if req.Message != nil {
		updates["message"] = *req.Message
	}

	if req.InactivityDurationDays != nil {
		sw.InactivityDurationDays = *req.InactivityDurationDays
		sw.RecomputeNextTrigger()

		// The deadline moves with the new duration, anchored to the existing
		// last check-in.
		updates["inactivity_duration_days"] = *req.InactivityDurationDays
		updates["next_trigger_at"] = sw.NextTriggerAt
	}

	if len(updates) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No valid fields to update"})
		return
	}

	if err := db.DB.Model(&sw).Updates(updates).Error; err != nil {
		logger.Named("handlers").Error("Failed to update switch",
			zap.Uint("switch_id", sw.ID),
			zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update switch"})
		return
	}

	ctx.JSON(http.StatusOK, toSwitchResponse(sw))
}

func DeleteSwitch(ctx *gin.Context) {
	sw, ok := findOwnedSwitch(ctx)

	if !ok {
		return
	}

	// Cascades to the action and the check-in history.
	if err := db.DB.Select("Action", "CheckIns").Delete(&sw).Error; err != nil {
		logger.Named("handlers").Error("Failed to delete switch",
			zap.Uint("switch_id", sw.ID),
			zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete switch"})
		return
	}

	ctx.Status(http.StatusNoContent)
}

// CheckInSwitch resets the switch's inactivity clock and appends to its
// check-in log. Status is untouched: checking in does not revive a switch
// that already triggered.
func CheckInSwitch(ctx *gin.Context) {
	sw, ok := findOwnedSwitch(ctx)

	if !ok {
		return
	}

	now := time.Now()

	sw.LastCheckin = now
	sw.RecomputeNextTrigger()

	// The clock reset and the log entry land together or not at all.
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&sw).Updates(map[string]interface{}{
			"last_checkin":    sw.LastCheckin,
			"next_trigger_at": sw.NextTriggerAt,
		}).Error; err != nil {
			return err
		}

		return tx.Create(&models.CheckIn{
			SwitchID:  sw.ID,
			Timestamp: now,
		}).Error
	})

	if err != nil {
		logger.Named("handlers").Error("Failed to record check-in",
			zap.Uint("switch_id", sw.ID),
			zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record check-in"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":         "Check-in successful. Next trigger reset.",
		"status":          sw.Status,
		"next_trigger_at": sw.NextTriggerAt,
	})
}

func ListCheckIns(ctx *gin.Context) {
	sw, ok := findOwnedSwitch(ctx)

	if !ok {
		return
	}

	var checkIns []models.CheckIn

	if err := db.DB.Where("switch_id = ?", sw.ID).
		Order("timestamp DESC").
		Limit(50).
		Find(&checkIns).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve check-ins"})
		return
	}

	response := make([]CheckInResponse, 0, len(checkIns))
	for _, checkIn := range checkIns {
		response = append(response, CheckInResponse{
			ID:        checkIn.ID,
			Timestamp: checkIn.Timestamp,
		})
	}

	ctx.JSON(http.StatusOK, response)
}

// MyStatus summarizes the caller's switches: counts per status and the most
// recent check-in across all of them.
func MyStatus(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var activeCount, triggeredCount int64

	if err := db.DB.Model(&models.Switch{}).
		Where("user_id = ? AND status = ?", userID, models.SwitchStatusActive).
		Count(&activeCount).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve status"})
		return
	}

	if err := db.DB.Model(&models.Switch{}).
		Where("user_id = ? AND status = ?", userID, models.SwitchStatusTriggered).
		Count(&triggeredCount).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve status"})
		return
	}

	var lastCheckin sql.NullTime

	row := db.DB.Model(&models.Switch{}).
		Select("MAX(last_checkin)").
		Where("user_id = ?", userID).
		Row()

	if err := row.Scan(&lastCheckin); err != nil {
		lastCheckin.Valid = false
	}

	var lastCheckinStr interface{}
	if lastCheckin.Valid {
		lastCheckinStr = lastCheckin.Time.Format("2006-01-02 15:04:05")
	}

	ctx.JSON(http.StatusOK, gin.H{
		"active_switches":    activeCount,
		"triggered_switches": triggeredCount,
		"last_checkin":       lastCheckinStr,
	})
}

package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/deadman-dev/deadman/db"
	"github.com/deadman-dev/deadman/internal/auth"
	"github.com/deadman-dev/deadman/internal/logger"
	"github.com/deadman-dev/deadman/internal/models"
	"github.com/deadman-dev/deadman/internal/router"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupAPI(t *testing.T) (*gin.Engine, string, uint) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	logger.SetTestLoggerNop()

	os.Setenv("JWT_SECRET", "test-secret")
	require.NoError(t, auth.InitJWTSecret())
	require.NoError(t, db.UseTestDatabase())

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Name:         "Alex",
		Email:        "alex@example.com",
		PasswordHash: string(passwordHash),
	}
	require.NoError(t, db.DB.Create(&user).Error)

	token, err := auth.GenerateJWT(user.ID, user.Email)
	require.NoError(t, err)

	return router.NewRouter(), token, user.ID
}

func doJSON(t *testing.T, r *gin.Engine, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createSwitchRequest() map[string]interface{} {
	return map[string]interface{}{
		"title":                    "Estate instructions",
		"message":                  "The will is in the safe.",
		"inactivity_duration_days": 7,
		"action_type":              "email",
		"action_target":            "lawyer@example.com",
	}
}

func TestCreateSwitch(t *testing.T) {
	r, token, userID := setupAPI(t)

	w := doJSON(t, r, token, http.MethodPost, "/api/switches", createSwitchRequest())
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		ID            uint      `json:"id"`
		Status        string    `json:"status"`
		LastCheckin   time.Time `json:"last_checkin"`
		NextTriggerAt time.Time `json:"next_trigger_at"`
		Action        struct {
			Type   string `json:"type"`
			Target string `json:"target"`
		} `json:"action"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "active", resp.Status)
	assert.Equal(t, "email", resp.Action.Type)
	assert.Equal(t, "lawyer@example.com", resp.Action.Target)
	assert.Equal(t, resp.LastCheckin.Add(7*24*time.Hour), resp.NextTriggerAt)

	var sw models.Switch
	require.NoError(t, db.DB.Preload("Action").First(&sw, resp.ID).Error)
	assert.Equal(t, userID, sw.UserID)
	assert.Equal(t, models.ActionTypeEmail, sw.Action.Type)
}

func TestCreateSwitchValidation(t *testing.T) {
	r, token, _ := setupAPI(t)

	cases := []struct {
		name    string
		mutator func(map[string]interface{})
	}{
		{"zero duration", func(m map[string]interface{}) { m["inactivity_duration_days"] = 0 }},
		{"negative duration", func(m map[string]interface{}) { m["inactivity_duration_days"] = -3 }},
		{"unknown action type", func(m map[string]interface{}) { m["action_type"] = "sms" }},
		{"malformed email target", func(m map[string]interface{}) { m["action_target"] = "not-an-email" }},
		{"malformed webhook target", func(m map[string]interface{}) {
			m["action_type"] = "webhook"
			m["action_target"] = "ftp://example.com/hook"
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := createSwitchRequest()
			tc.mutator(body)

			w := doJSON(t, r, token, http.MethodPost, "/api/switches", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCheckInResetsClock(t *testing.T) {
	r, token, _ := setupAPI(t)

	w := doJSON(t, r, token, http.MethodPost, "/api/switches", createSwitchRequest())
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Age the switch so the check-in visibly moves the clock.
	past := time.Now().Add(-6 * 24 * time.Hour)
	require.NoError(t, db.DB.Model(&models.Switch{}).
		Where("id = ?", created.ID).
		Updates(map[string]interface{}{
			"last_checkin":    past,
			"next_trigger_at": past.Add(7 * 24 * time.Hour),
		}).Error)

	w = doJSON(t, r, token, http.MethodPost, fmt.Sprintf("/api/switches/%d/checkin", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var sw models.Switch
	require.NoError(t, db.DB.First(&sw, created.ID).Error)

	assert.WithinDuration(t, time.Now(), sw.LastCheckin, 5*time.Second)
	assert.Equal(t, sw.LastCheckin.Add(7*24*time.Hour), sw.NextTriggerAt)
	assert.Equal(t, models.SwitchStatusActive, sw.Status)

	w = doJSON(t, r, token, http.MethodGet, fmt.Sprintf("/api/switches/%d/checkins", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var checkIns []struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checkIns))
	assert.Len(t, checkIns, 1)
}

func TestCheckInRollsBackWhenLogInsertFails(t *testing.T) {
	r, token, _ := setupAPI(t)

	w := doJSON(t, r, token, http.MethodPost, "/api/switches", createSwitchRequest())
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	past := time.Now().Add(-6 * 24 * time.Hour)
	require.NoError(t, db.DB.Model(&models.Switch{}).
		Where("id = ?", created.ID).
		Updates(map[string]interface{}{
			"last_checkin":    past,
			"next_trigger_at": past.Add(7 * 24 * time.Hour),
		}).Error)

	// Make the check-in log insert fail mid-transaction: the clock reset that
	// already ran inside the same transaction must be rolled back.
	require.NoError(t, db.DB.Migrator().DropTable(&models.CheckIn{}))

	w = doJSON(t, r, token, http.MethodPost, fmt.Sprintf("/api/switches/%d/checkin", created.ID), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var sw models.Switch
	require.NoError(t, db.DB.First(&sw, created.ID).Error)
	assert.WithinDuration(t, past, sw.LastCheckin, time.Second)
}

func TestCheckInDoesNotReviveTriggeredSwitch(t *testing.T) {
	r, token, _ := setupAPI(t)

	w := doJSON(t, r, token, http.MethodPost, "/api/switches", createSwitchRequest())
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	require.NoError(t, db.DB.Model(&models.Switch{}).
		Where("id = ?", created.ID).
		Update("status", models.SwitchStatusTriggered).Error)

	w = doJSON(t, r, token, http.MethodPost, fmt.Sprintf("/api/switches/%d/checkin", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var sw models.Switch
	require.NoError(t, db.DB.First(&sw, created.ID).Error)
	assert.Equal(t, models.SwitchStatusTriggered, sw.Status)
}

func TestSwitchOwnershipScoping(t *testing.T) {
	r, token, _ := setupAPI(t)

	w := doJSON(t, r, token, http.MethodPost, "/api/switches", createSwitchRequest())
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	other := models.User{Name: "Mallory", Email: "mallory@example.com", PasswordHash: "x"}
	require.NoError(t, db.DB.Create(&other).Error)

	otherToken, err := auth.GenerateJWT(other.ID, other.Email)
	require.NoError(t, err)

	w = doJSON(t, r, otherToken, http.MethodGet, fmt.Sprintf("/api/switches/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, otherToken, http.MethodPost, fmt.Sprintf("/api/switches/%d/checkin", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSwitchCascades(t *testing.T) {
	r, token, _ := setupAPI(t)

	w := doJSON(t, r, token, http.MethodPost, "/api/switches", createSwitchRequest())
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID     uint `json:"id"`
		Action struct {
			ID uint `json:"id"`
		} `json:"action"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, token, http.MethodPost, fmt.Sprintf("/api/switches/%d/checkin", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, token, http.MethodDelete, fmt.Sprintf("/api/switches/%d", created.ID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	db.DB.Model(&models.Action{}).Where("id = ?", created.Action.ID).Count(&count)
	assert.Zero(t, count)

	db.DB.Model(&models.CheckIn{}).Where("switch_id = ?", created.ID).Count(&count)
	assert.Zero(t, count)
}

func TestUpdateSwitchDurationMovesDeadline(t *testing.T) {
	r, token, _ := setupAPI(t)

	w := doJSON(t, r, token, http.MethodPost, "/api/switches", createSwitchRequest())
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, token, http.MethodPatch, fmt.Sprintf("/api/switches/%d", created.ID),
		map[string]interface{}{"inactivity_duration_days": 30})
	require.Equal(t, http.StatusOK, w.Code)

	var sw models.Switch
	require.NoError(t, db.DB.First(&sw, created.ID).Error)

	assert.Equal(t, 30, sw.InactivityDurationDays)
	assert.Equal(t, sw.LastCheckin.Add(30*24*time.Hour), sw.NextTriggerAt)
}

func TestMyStatus(t *testing.T) {
	r, token, userID := setupAPI(t)

	w := doJSON(t, r, token, http.MethodPost, "/api/switches", createSwitchRequest())
	require.Equal(t, http.StatusCreated, w.Code)

	second := createSwitchRequest()
	second["title"] = "Backup switch"
	w = doJSON(t, r, token, http.MethodPost, "/api/switches", second)
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, db.DB.Model(&models.Switch{}).
		Where("user_id = ? AND title = ?", userID, "Backup switch").
		Update("status", models.SwitchStatusTriggered).Error)

	w = doJSON(t, r, token, http.MethodGet, "/api/my-status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status struct {
		ActiveSwitches    int64 `json:"active_switches"`
		TriggeredSwitches int64 `json:"triggered_switches"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))

	assert.Equal(t, int64(1), status.ActiveSwitches)
	assert.Equal(t, int64(1), status.TriggeredSwitches)
}

func TestSwitchEndpointsRequireAuth(t *testing.T) {
	r, _, _ := setupAPI(t)

	w := doJSON(t, r, "", http.MethodGet, "/api/switches", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

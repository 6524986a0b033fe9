package handlers

import (
	"net/http"

	"github.com/deadman-dev/deadman/internal/models"
	"github.com/deadman-dev/deadman/internal/notify"
	"github.com/deadman-dev/deadman/internal/utils"
	"github.com/gin-gonic/gin"
)

type ActionTypeResponse struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type WebhookTestRequest struct {
	URL string `json:"url" binding:"required,url"`
}

var actionTypeDescriptions = map[models.ActionType]string{
	models.ActionTypeEmail:   "Email",
	models.ActionTypeWebhook: "Webhook",
}

// ListActionTypes returns the catalogue of supported action types.
func ListActionTypes(ctx *gin.Context) {
	response := make([]ActionTypeResponse, 0, len(models.ActionTypes))

	for _, actionType := range models.ActionTypes {
		response = append(response, ActionTypeResponse{
			Type:        string(actionType),
			Description: actionTypeDescriptions[actionType],
		})
	}

	ctx.JSON(http.StatusOK, response)
}

// WebhookTest fires a test payload at a URL so users can verify their
// endpoint before wiring it to a switch. Unlike the trigger path, this
// reports the HTTP status code.
func WebhookTest(ctx *gin.Context) {
	var req WebhookTestRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "URL required"})
		return
	}

	if err := utils.ValidateAction(models.ActionTypeWebhook, req.URL); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := notify.TestWebhook(req.URL)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, result)
}

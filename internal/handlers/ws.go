package handlers

import (
	"net/http"

	"github.com/deadman-dev/deadman/internal/utils"
	"github.com/deadman-dev/deadman/internal/ws"
	"github.com/gin-gonic/gin"
)

// WebSocket streams switch trigger events to the authenticated user.
func WebSocket(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ws.Serve(ctx, userID)
}

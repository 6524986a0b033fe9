package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/deadman-dev/deadman/db"
	"github.com/deadman-dev/deadman/internal/auth"
	"github.com/deadman-dev/deadman/internal/logger"
	"github.com/deadman-dev/deadman/internal/models"
	"github.com/deadman-dev/deadman/internal/notify"
	"github.com/deadman-dev/deadman/internal/types"
	"github.com/deadman-dev/deadman/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type UpdateUserRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email" binding:"omitempty,email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"omitempty,min=8"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

// ResetMailer overrides the password reset mailer. Tests swap it in; when
// nil, a mailer is built from the environment at request time, after the CLI
// has loaded .env.
var ResetMailer notify.Mailer

func resetMailer() notify.Mailer {
	if ResetMailer != nil {
		return ResetMailer
	}
	return notify.NewSMTPMailerFromEnv()
}

const resetTokenTTL = time.Hour

func setAuthCookie(ctx *gin.Context, token string, maxAge int) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Domain:   os.Getenv("DOMAIN"),
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

func CreateUser(ctx *gin.Context) {
	var user CreateUserRequest

	if err := ctx.BindJSON(&user); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	var existingUser models.User

	err := db.DB.Where("email = ?", user.Email).First(&existingUser).Error

	if err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Named("handlers").Error("Database error when checking existing user", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)

	if err != nil {
		logger.Named("handlers").Error("Failed to hash password", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	newUser := models.User{
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: string(passwordHash),
	}

	if err := db.DB.Create(&newUser).Error; err != nil {
		logger.Named("handlers").Error("Failed to create user", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := auth.GenerateJWT(newUser.ID, newUser.Email)

	if err != nil {
		logger.Named("handlers").Error("Failed to generate JWT", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	setAuthCookie(ctx, token, 60*60*24*7)

	ctx.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user": types.UserResponse{
			ID:    newUser.ID,
			Name:  newUser.Name,
			Email: newUser.Email,
		},
	})
}

func LoginUser(ctx *gin.Context) {
	var user LoginUserRequest

	if err := ctx.BindJSON(&user); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var existingUser models.User

	err := db.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(user.Email))).First(&existingUser).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
			return
		}
		logger.Named("handlers").Error("Database error when fetching user", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(existingUser.PasswordHash), []byte(user.Password))

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := auth.GenerateJWT(existingUser.ID, existingUser.Email)

	if err != nil {
		logger.Named("handlers").Error("Failed to generate JWT", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	setAuthCookie(ctx, token, 60*60*24*7)

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": types.UserResponse{
			ID:    existingUser.ID,
			Name:  existingUser.Name,
			Email: existingUser.Email,
		},
	})
}

func Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user": types.UserResponse{
			ID:    currentUser.ID,
			Name:  currentUser.Name,
			Email: currentUser.Email,
		},
	})
}

func LogoutUser(ctx *gin.Context) {
	setAuthCookie(ctx, "", -1)

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func UpdateUser(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var dbUser models.User
	if err := db.DB.First(&dbUser, currentUser.ID).Error; err != nil {
		logger.Named("handlers").Error("Failed to fetch user", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var updateReq UpdateUserRequest
	if err := ctx.BindJSON(&updateReq); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	updates := make(map[string]interface{})

	if updateReq.Name != "" {
		updates["name"] = strings.TrimSpace(updateReq.Name)
	}

	if updateReq.Email != "" {
		newEmail := strings.ToLower(strings.TrimSpace(updateReq.Email))

		if newEmail != dbUser.Email {
			var existingUser models.User
			err := db.DB.Where("email = ? AND id != ?", newEmail, dbUser.ID).First(&existingUser).Error
			if err == nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
				return
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Named("handlers").Error("Database error when checking existing email", zap.Error(err))
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
		}

		updates["email"] = newEmail
	}

	if updateReq.NewPassword != "" {
		if updateReq.CurrentPassword == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Current password is required to change password"})
			return
		}

		err = bcrypt.CompareHashAndPassword([]byte(dbUser.PasswordHash), []byte(updateReq.CurrentPassword))
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Current password is incorrect"})
			return
		}

		passwordHash, err := bcrypt.GenerateFromPassword([]byte(updateReq.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			logger.Named("handlers").Error("Failed to hash new password", zap.Error(err))
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		updates["password_hash"] = string(passwordHash)
	}

	if len(updates) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No valid fields to update"})
		return
	}

	if err := db.DB.Model(&dbUser).Updates(updates).Error; err != nil {
		logger.Named("handlers").Error("Failed to update user", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := db.DB.First(&dbUser, dbUser.ID).Error; err != nil {
		logger.Named("handlers").Error("Failed to refresh user data", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user": types.UserResponse{
			ID:    dbUser.ID,
			Name:  dbUser.Name,
			Email: dbUser.Email,
		},
	})
}

func DeleteUser(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var dbUser models.User
	if err := db.DB.First(&dbUser, currentUser.ID).Error; err != nil {
		logger.Named("handlers").Error("Failed to fetch user", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var deleteReq struct {
		Password string `json:"password" binding:"required"`
	}

	if err := ctx.BindJSON(&deleteReq); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Password is required for account deletion"})
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(dbUser.PasswordHash), []byte(deleteReq.Password))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Incorrect password"})
		return
	}

	// Cascades to switches, actions and check-in history.
	if err := db.DB.Select("Switches").Delete(&dbUser).Error; err != nil {
		logger.Named("handlers").Error("Failed to delete user", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	setAuthCookie(ctx, "", -1)

	ctx.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}

// RequestPasswordReset issues a reset token and mails it to the account's
// address. The response is identical whether or not the account exists.
func RequestPasswordReset(ctx *gin.Context) {
	var req PasswordResetRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	neutralReply := gin.H{"message": "If that email is registered, a reset token has been sent"}

	var user models.User

	err := db.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error

	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Named("handlers").Error("Database error during password reset", zap.Error(err))
		}
		ctx.JSON(http.StatusOK, neutralReply)
		return
	}

	resetToken := models.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}

	if err := db.DB.Create(&resetToken).Error; err != nil {
		logger.Named("handlers").Error("Failed to store reset token", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	body := fmt.Sprintf("Use this token to reset your password: %s\n\nIt expires in one hour.", resetToken.Token)

	if err := resetMailer().Send(ctx.Request.Context(), user.Email, "Password Reset", body); err != nil {
		logger.Named("handlers").Error("Failed to send reset email",
			zap.Uint("user_id", user.ID),
			zap.Error(err))
	}

	ctx.JSON(http.StatusOK, neutralReply)
}

func ConfirmPasswordReset(ctx *gin.Context) {
	tokenParam := ctx.Param("token")

	if tokenParam == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Reset token is required"})
		return
	}

	var req PasswordResetConfirmRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var resetToken models.PasswordResetToken

	err := db.DB.Where("token = ?", tokenParam).First(&resetToken).Error

	if err != nil || time.Now().After(resetToken.ExpiresAt) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset token"})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)

	if err != nil {
		logger.Named("handlers").Error("Failed to hash password", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := db.DB.Model(&models.User{}).
		Where("id = ?", resetToken.UserID).
		Update("password_hash", string(passwordHash)).Error; err != nil {
		logger.Named("handlers").Error("Failed to update password", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// The token must not survive a successful reset; a failed delete would
	// leave it usable again.
	if err := db.DB.Delete(&resetToken).Error; err != nil {
		logger.Named("handlers").Error("Failed to delete reset token",
			zap.Uint("user_id", resetToken.UserID),
			zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

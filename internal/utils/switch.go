package utils

import (
	"errors"
	"net/mail"
	"net/url"
	"strconv"

	"github.com/deadman-dev/deadman/internal/models"
	"github.com/gin-gonic/gin"
)

func GetSwitchID(ctx *gin.Context) (uint64, error) {
	switchIDStr := ctx.Param("switch_id")

	if switchIDStr == "" {
		return 0, errors.New("switch ID not found")
	}

	switchID, err := strconv.ParseUint(switchIDStr, 10, 32)

	if err != nil {
		return 0, errors.New("invalid switch ID")
	}

	return switchID, nil
}

// ValidateAction checks that the action type belongs to the closed set and
// that the target is well-formed for it: an address for email actions, an
// absolute http(s) URL for webhooks.
func ValidateAction(actionType models.ActionType, target string) error {
	switch actionType {
	case models.ActionTypeEmail:
		if _, err := mail.ParseAddress(target); err != nil {
			return errors.New("action target must be a valid email address")
		}
	case models.ActionTypeWebhook:
		parsed, err := url.Parse(target)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return errors.New("action target must be a valid http or https URL")
		}
	default:
		return errors.New("action type must be one of: email, webhook")
	}

	return nil
}

package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shs-registrar-api/internal/middleware"
	"github.com/noah-isme/shs-registrar-api/internal/models"
	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}

// queryInt returns the integer query value or fallback when absent or malformed.
func queryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// activeFilter reads ?active=true|false|all. Lookups default to active rows.
func activeFilter(c *gin.Context) (models.ActiveFilter, error) {
	switch strings.ToLower(strings.TrimSpace(c.Query("active"))) {
	case "", "true":
		return models.OnlyActive, nil
	case "false":
		return models.OnlyInactive, nil
	case "all":
		return models.AnyActivity, nil
	default:
		return models.OnlyActive, appErrors.Clone(appErrors.ErrValidation, "active must be true, false or all")
	}
}

// lifecycleRequest toggles the active flag of a lookup record.
type lifecycleRequest struct {
	Active *bool `json:"active" binding:"required"`
}

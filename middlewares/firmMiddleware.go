package middlewares

import (
	"net/http"
	"strconv"

	"bitbucket.org/campodata/agroledger_backend/models"
	"bitbucket.org/campodata/agroledger_backend/utils"
	"github.com/gin-gonic/gin"
)

// FirmMiddleware resolves the tenant for every /api request. The firm-id
// header must name an existing active firm; everything downstream (guard
// plugin, model functions) trusts the context value set here.
func FirmMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		firmId := c.GetHeader("firm-id")
		if firmId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "firm-id header is required"})
			c.Abort()
			return
		}

		firm, err := models.GetFirmById(c.Request.Context(), firmId)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown firm"})
			c.Abort()
			return
		}
		if firm.IsActive != nil && !*firm.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "firm is inactive"})
			c.Abort()
			return
		}

		ctx := utils.SetFirmIdInContext(c.Request.Context(), firmId)
		if userId, err := strconv.Atoi(c.GetHeader("user-id")); err == nil {
			ctx = utils.SetUserIdInContext(ctx, userId)
		}
		if userName := c.GetHeader("user-name"); userName != "" {
			ctx = utils.SetUserNameInContext(ctx, userName)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

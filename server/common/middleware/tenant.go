package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"media_gateway/server/common/transport/httpresp"
)

const TenantIDKey = "tenant_id"

// TenantRequired rejects requests that do not carry the tenant identifier
// header. The value is trusted as given; it is not authenticated.
func TenantRequired(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := strings.TrimSpace(c.GetHeader(header))
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, httpresp.NewErrorResponse(httpresp.ErrMissingTenant))
			return
		}
		c.Set(TenantIDKey, tenantID)
		c.Next()
	}
}

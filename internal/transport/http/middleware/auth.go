package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"docuchat/internal/pkg/jwtutil"
	"docuchat/internal/repository"
	"docuchat/internal/transport/http/response"
)

const ContextTenantIDKey = "tenant_id"

// AuthTenant authenticates management requests. Two credentials are
// accepted: a Bearer token from the upstream issuer carrying tenant_id, or
// the tenant's raw API key in X-API-Key alongside X-Tenant-ID. Both resolve
// to the tenant id stored under ContextTenantIDKey.
func AuthTenant(secret string, tenants *repository.TenantRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))

		const prefix = "Bearer "
		if strings.HasPrefix(authHeader, prefix) {
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
			claims, err := jwtutil.ParseToken(secret, token)
			if err != nil {
				response.Error(c, 401, "invalid or expired token")
				c.Abort()
				return
			}
			c.Set(ContextTenantIDKey, claims.TenantID)
			c.Next()
			return
		}

		apiKey := strings.TrimSpace(c.GetHeader("X-API-Key"))
		tenantHeader := strings.TrimSpace(c.GetHeader("X-Tenant-ID"))
		if apiKey == "" || tenantHeader == "" {
			response.Error(c, 401, "missing credentials")
			c.Abort()
			return
		}

		tenantID, err := strconv.ParseUint(tenantHeader, 10, 64)
		if err != nil || tenantID == 0 {
			response.Error(c, 401, "invalid tenant id")
			c.Abort()
			return
		}

		tenant, err := tenants.GetByID(c.Request.Context(), uint(tenantID))
		if err != nil {
			response.Error(c, 500, "tenant lookup failed")
			c.Abort()
			return
		}
		if tenant == nil {
			response.Error(c, 401, "unknown tenant")
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(tenant.APIKeyHash), []byte(apiKey)); err != nil {
			response.Error(c, 401, "invalid api key")
			c.Abort()
			return
		}

		c.Set(ContextTenantIDKey, tenant.ID)
		c.Next()
	}
}

// TenantID reads the authenticated tenant from the request context.
func TenantID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextTenantIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

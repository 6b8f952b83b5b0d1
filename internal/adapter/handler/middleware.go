package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/catrink/internal/core/domain"
)

const principalKey = "principal"

const demoMutationMessage = "You can't make changes in demo website!"

// authenticate resolves the bearer token, if any, into a principal. Requests
// without a token continue as anonymous; a bad or stale token is rejected.
func (h *HTTPHandler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(principalKey, domain.Anonymous)
			c.Next()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "bearer token required"})
			return
		}

		claimed, err := h.tokens.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "invalid or expired token"})
			return
		}
		p, err := h.auth.Resolve(c.Request.Context(), claimed)
		if err != nil {
			status, msg := statusFor(err)
			c.AbortWithStatusJSON(status, errorResponse{Error: msg})
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !principal(c).Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "please login to continue"})
			return
		}
		c.Next()
	}
}

func requireBackOffice() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !principal(c).Capabilities().CanViewBackOffice {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Error: "access denied"})
			return
		}
		c.Next()
	}
}

// requireMutation guards back-office writes. Demo admins can look but not touch.
func requireMutation() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !principal(c).Capabilities().CanMutateCatalog {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Error: demoMutationMessage})
			return
		}
		c.Next()
	}
}

// maintenanceGate turns the storefront away while maintenance mode is on.
// Back-office principals pass through.
func (h *HTTPHandler) maintenanceGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if principal(c).Capabilities().CanViewBackOffice {
			c.Next()
			return
		}
		on, err := h.settings.MaintenanceMode(c.Request.Context())
		if err != nil {
			h.log.WithError(err).Warn("maintenance mode lookup failed")
		}
		if on {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: "store is under maintenance"})
			return
		}
		c.Next()
	}
}

func principal(c *gin.Context) domain.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(domain.Principal); ok {
			return p
		}
	}
	return domain.Anonymous
}

package server

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/healx/internal/auth"
	"github.com/smallbiznis/healx/internal/identity"
	obscontext "github.com/smallbiznis/healx/internal/observability/context"
)

const contextUserIDKey = "user_id"

// AuthRequired resolves the bearer token into a principal on the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.verifier == nil {
			AbortWithError(c, auth.ErrAuthNotConfigured)
			return
		}

		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		principal, err := s.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := identity.WithPrincipal(c.Request.Context(), principal)
		ctx = obscontext.WithActor(ctx, string(principal.Role), principal.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextUserIDKey, principal.UserID)
		c.Next()
	}
}

func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := identity.PrincipalFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), principal, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func principalFromGin(c *gin.Context) (identity.Principal, bool) {
	return identity.PrincipalFromContext(c.Request.Context())
}

func (s *Server) serveIndex(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		file := filepath.Join(s.cfg.PublicDir, name)
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "HealX Backend is running. Frontend bundle " + name + " was not found.",
		})
	}
}

package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/gatekeeper/internal/apierror"
)

// RequireAuthentication はセッション Cookie のトークンを検証するミドルウェアを返します。
// Cookie 無し・期限切れ・改ざん・不正な形状のいずれも同じ 401 応答にまとめます。
func (m *Manager) RequireAuthentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := m.authenticate(c)
		if err != nil {
			if m.debug {
				m.logger.Printf("[DEBUG] rejected %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
			}
			apierror.Abort(c, apierror.Unauthenticated())
			return
		}

		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

func (m *Manager) authenticate(c *gin.Context) (Identity, error) {
	token, err := m.cookies.Read(c.Request)
	if err != nil {
		return Identity{}, err
	}
	return m.tokens.Verify(token)
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionIDKey is the gin context key holding the browser session id.
const SessionIDKey = "session_id"

// SessionCookie makes sure every request carries a browser session id,
// issuing a fresh one when the cookie is missing or malformed.
func SessionCookie(name string, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(name)
		if err != nil {
			id = ""
		}
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(name, id, 0, "/", "", secure, true)
		}

		c.Set(SessionIDKey, id)
		c.Next()
	}
}

// SessionID returns the id set by SessionCookie.
func SessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}

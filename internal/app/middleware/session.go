package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const sessionIDKey = "session_id"

// SessionMiddleware выдаёт браузеру id сессии в cookie и кладёт его в контекст.
// По этому id хранится черновик и загруженные списки
func SessionMiddleware(cookieName string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cookieName)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
		}

		// продлеваем cookie на каждом запросе
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, id, int(ttl.Seconds()), "/", "", false, true)
		c.Set(sessionIDKey, id)
		c.Next()
	}
}

// GetSessionID извлекает id сессии из контекста
func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}

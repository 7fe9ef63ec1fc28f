package public

import (
	handlershared "github.com/spinshop/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "user_id")
}

func getUserEmail(c *gin.Context) (string, bool) {
	return handlershared.GetContextString(c, "user_email")
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func UUIDValidator() gin.HandlerFunc {
	return func(c *gin.Context) {
		deploymentID := c.Param("uuid")

		// Validate UUID format
		parsedUUID, err := uuid.Parse(deploymentID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error": "invalid deployment identifier format",
			})
			return
		}
		c.Set("uuid", parsedUUID)
		c.Next()
	}
}

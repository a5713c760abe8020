package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ExtractUintParam создает middleware для извлечения и валидации числового
// параметра URL. Маршруты активностей, вопросов и попыток используют его,
// чтобы обработчикам доставался уже распарсенный uint: например,
// ExtractUintParam("id", "activityID") для /activities/:id.
func ExtractUintParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName)})
			c.Abort()
			return
		}
		// Обработчики читают значение через c.MustGet(contextKey).(uint)
		c.Set(contextKey, uint(id))
		c.Next()
	}
}

package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Ключи контекста для идентификаторов, проставленных шлюзом
const (
	ContextStudentID = "student_id"
	ContextTeacherID = "teacher_id"
)

// Заголовки, которые проставляет API-шлюз после аутентификации.
// Сервис доверяет им и сам токены не проверяет.
const (
	HeaderStudentID = "X-Student-ID"
	HeaderTeacherID = "X-Teacher-ID"
)

// RequireStudent извлекает ID студента из заголовка шлюза.
// Запрос без валидного заголовка отклоняется с 401.
func RequireStudent() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdentityHeader(c, HeaderStudentID)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid student identity"})
			return
		}
		c.Set(ContextStudentID, id)
		c.Next()
	}
}

// RequireTeacher извлекает ID преподавателя из заголовка шлюза
func RequireTeacher() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdentityHeader(c, HeaderTeacherID)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid teacher identity"})
			return
		}
		c.Set(ContextTeacherID, id)
		c.Next()
	}
}

func parseIdentityHeader(c *gin.Context, header string) (uint, bool) {
	raw := c.GetHeader(header)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

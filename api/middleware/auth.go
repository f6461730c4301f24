package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/customeros/metricsrelay/api/response"
	"github.com/customeros/metricsrelay/interfaces"
	"github.com/customeros/metricsrelay/internal/models"
	"github.com/customeros/metricsrelay/internal/utils"
)

const userKey = "User"

// AuthMiddleware verifies the bearer token of the request. With optional set, requests without
// an Authorization header pass through unauthenticated; a header that is present is always verified.
func AuthMiddleware(verifier interfaces.AuthVerifier, mapper *response.Mapper, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := verifier.Verify(c.Request.Context(), c.GetHeader("Authorization"), optional)
		if err != nil {
			mapper.Abort(c, err)
			return
		}

		if user != nil {
			c.Set(userKey, user)
			c.Set("UserId", user.SubjectID)
			c.Set("UserEmail", user.Email)
			ctx := utils.SetUserInContext(c.Request.Context(), user.SubjectID, user.Email)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// UserFromContext returns the verified user, or nil for unauthenticated requests.
func UserFromContext(c *gin.Context) *models.User {
	value, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

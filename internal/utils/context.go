package utils

import (
	"context"

	"github.com/gin-gonic/gin"
)

type CustomContext struct {
	AppSource string
	RequestId string
	UserId    string
	UserEmail string
	Method    string
	Path      string
}

type customContextKey struct{}

func WithCustomContext(ctx context.Context, customContext *CustomContext) context.Context {
	return context.WithValue(ctx, customContextKey{}, customContext)
}

func WithCustomContextFromGinRequest(c *gin.Context, appSource string) context.Context {
	customContext := &CustomContext{
		AppSource: appSource,
		RequestId: c.GetString("RequestId"),
		UserId:    c.GetString("UserId"),
		UserEmail: c.GetString("UserEmail"),
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
	}
	return WithCustomContext(c.Request.Context(), customContext)
}

func GetContext(ctx context.Context) *CustomContext {
	customContext, ok := ctx.Value(customContextKey{}).(*CustomContext)
	if !ok {
		return new(CustomContext)
	}
	return customContext
}

func GetAppSourceFromContext(ctx context.Context) string {
	return GetContext(ctx).AppSource
}

func GetRequestIdFromContext(ctx context.Context) string {
	return GetContext(ctx).RequestId
}

func GetUserIdFromContext(ctx context.Context) string {
	return GetContext(ctx).UserId
}

func GetUserEmailFromContext(ctx context.Context) string {
	return GetContext(ctx).UserEmail
}

func GetMethodFromContext(ctx context.Context) string {
	return GetContext(ctx).Method
}

func GetPathFromContext(ctx context.Context) string {
	return GetContext(ctx).Path
}

// SetUserInContext records the verified subject id and email on the custom context.
func SetUserInContext(ctx context.Context, userId, userEmail string) context.Context {
	customContext := *GetContext(ctx)
	customContext.UserId = userId
	customContext.UserEmail = userEmail
	return WithCustomContext(ctx, &customContext)
}

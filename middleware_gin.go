package sessionkit

import (
	"github.com/gin-gonic/gin"
)

// Gin returns the filter as gin middleware. Same contract as Handler:
// the scope is attached to the request context and cleared when the
// handler chain returns, on every exit path.
func (f *BearerFilter) Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := NewScope()
		defer scope.Clear()

		if id, ok := f.verify(c.Request); ok {
			scope.SetIdentityID(id)
		}

		c.Request = c.Request.WithContext(ContextWithScope(c.Request.Context(), scope))
		c.Next()
	}
}

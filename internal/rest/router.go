package rest

import "github.com/gin-gonic/gin"

// RegisterCommentRoutes mounts the comment API on r. auth guards the
// mutating routes.
func RegisterCommentRoutes(r gin.IRouter, h *commentHandler, auth gin.HandlerFunc) {
	r.GET("/", Live)

	comments := r.Group("/api/comments")
	comments.GET("/health", h.Health)
	comments.GET("", h.FetchComments)
	comments.GET("/:id", h.GetByID)

	authorized := comments.Group("")
	authorized.Use(auth)
	{
		authorized.POST("", h.CreateComment)
		authorized.DELETE("/:id", h.DeleteComment)
	}
}

package rest

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Guyuepp/go-comment-service/domain"
	"github.com/Guyuepp/go-comment-service/internal/rest/middleware"
	"github.com/Guyuepp/go-comment-service/internal/rest/request"
	"github.com/Guyuepp/go-comment-service/internal/rest/response"
)

// commentHandler represent the httphandler for comment
type commentHandler struct {
	Service domain.CommentUsecase
}

func NewCommentHandler(svc domain.CommentUsecase) *commentHandler {
	return &commentHandler{
		Service: svc,
	}
}

// CreateComment POST /api/comments
func (h *commentHandler) CreateComment(c *gin.Context) {
	caller, ok := middleware.IdentityFromContext(c)
	if !ok {
		abortWithError(c, domain.ErrUnauthorized)
		return
	}

	var req request.Comment
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ResponseError{Message: "Invalid request body"})
		return
	}

	created, err := h.Service.Create(c.Request.Context(), caller, req.ToDomain())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.NewCommentFromDomain(&created))
}

// DeleteComment DELETE /api/comments/:id
func (h *commentHandler) DeleteComment(c *gin.Context) {
	caller, ok := middleware.IdentityFromContext(c)
	if !ok {
		abortWithError(c, domain.ErrUnauthorized)
		return
	}

	deleted, err := h.Service.Delete(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewDeletedComment(&deleted))
}

// FetchComments GET /api/comments?postId=&page=&limit=&includeReplies=
func (h *commentHandler) FetchComments(c *gin.Context) {
	postID := strings.TrimSpace(c.Query("postId"))
	if postID == "" {
		c.JSON(http.StatusBadRequest, ResponseError{Message: "Missing postId"})
		return
	}
	ctx := c.Request.Context()

	includeReplies, _ := strconv.ParseBool(c.Query("includeReplies"))
	if includeReplies {
		tree, err := h.Service.FetchTreeByPost(ctx, postID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.NewCommentTreeFromDomain(tree))
		return
	}

	// 非法的 page/limit 交给 Pagination 回退为默认值
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	res, err := h.Service.FetchByPost(ctx, postID, page, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewCommentPageFromDomain(res))
}

// GetByID GET /api/comments/:id
func (h *commentHandler) GetByID(c *gin.Context) {
	res, err := h.Service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewCommentFromDomain(&res))
}

func (h *commentHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "comments",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func Live(c *gin.Context) {
	c.String(http.StatusOK, "Comment API is live")
}

package routes

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/inboxd/pkg/constant"
	"github.com/inboxd/pkg/domains/inbox"
	"github.com/inboxd/pkg/domains/outbound"
	"github.com/inboxd/pkg/dtos"
	"github.com/inboxd/pkg/providers/evolution"
	"github.com/inboxd/pkg/providers/meta"
	"github.com/inboxd/pkg/state"
	"gorm.io/gorm"
)

func MessageRoutes(r *gin.RouterGroup, inboxService inbox.Service, sender outbound.Service) {
	r.POST("/conversations/:id/send", sendMessage(sender))
	r.GET("/search", searchMessages(inboxService))
}

// sendMessage delivers through the provider first; the 502 path means the
// provider rejected the send and nothing was persisted.
func sendMessage(sender outbound.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		var req dtos.DTOForMessageSend
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}
		if req.Text == "" && req.MediaData == "" {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		message, err := sender.SendMessage(c, state.CurrentWorkspace(c), id, req)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(404, gin.H{"error": constant.SEND_FAILED})
				return
			}
			var evoErr *evolution.SendError
			var metaErr *meta.SendError
			if errors.As(err, &evoErr) || errors.As(err, &metaErr) {
				c.JSON(502, gin.H{"error": constant.SEND_FAILED})
				return
			}
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		c.JSON(201, gin.H{"message": message})
	}
}

func searchMessages(s inbox.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		messages, totalPages, err := s.SearchMessages(c, state.CurrentWorkspace(c), query, page)
		if err != nil {
			c.JSON(500, gin.H{"error": constant.SOMETHING_WENT_WRONG})
			return
		}
		c.JSON(200, gin.H{
			"messages":    messages,
			"page":        page,
			"total_pages": totalPages,
		})
	}
}

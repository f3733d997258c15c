package routes

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/inboxd/pkg/constant"
	"github.com/inboxd/pkg/domains/inbox"
	"github.com/inboxd/pkg/dtos"
	"github.com/inboxd/pkg/entities"
	"github.com/inboxd/pkg/state"
	"gorm.io/gorm"
)

func ConversationRoutes(r *gin.RouterGroup, s inbox.Service) {
	r.GET("", listConversations(s))
	r.GET("/:id", getConversation(s))
	r.PUT("/:id/status", updateConversationStatus(s))
	r.PUT("/:id/read", markConversationRead(s))
	r.DELETE("/:id", deleteConversation(s))
	r.GET("/:id/messages", listMessages(s))
}

func listConversations(s inbox.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		conversations, err := s.ListConversations(c, state.CurrentWorkspace(c))
		if err != nil {
			c.JSON(500, gin.H{"error": constant.SOMETHING_WENT_WRONG})
			return
		}
		c.JSON(200, gin.H{"conversations": conversations})
	}
}

func getConversation(s inbox.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		conversation, err := s.GetConversation(c, state.CurrentWorkspace(c), id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(404, gin.H{"error": fmt.Sprintf(constant.CANT_FIND, "Conversation")})
				return
			}
			c.JSON(500, gin.H{"error": constant.SOMETHING_WENT_WRONG})
			return
		}
		c.JSON(200, gin.H{"conversation": conversation})
	}
}

func updateConversationStatus(s inbox.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		var req dtos.DTOForConversationStatus
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		if err := s.UpdateConversationStatus(c, state.CurrentWorkspace(c), id, entities.ConversationStatus(req.Status)); err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(404, gin.H{"error": fmt.Sprintf(constant.CANT_FIND, "Conversation")})
				return
			}
			c.JSON(500, gin.H{"error": constant.SOMETHING_WENT_WRONG})
			return
		}
		c.JSON(200, gin.H{"message": fmt.Sprintf(constant.UPDATED, "Conversation")})
	}
}

func markConversationRead(s inbox.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		if err := s.MarkConversationRead(c, state.CurrentWorkspace(c), id); err != nil {
			c.JSON(500, gin.H{"error": constant.SOMETHING_WENT_WRONG})
			return
		}
		c.JSON(200, gin.H{"message": fmt.Sprintf(constant.UPDATED, "Conversation")})
	}
}

func deleteConversation(s inbox.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		if err := s.DeleteConversation(c, state.CurrentWorkspace(c), id); err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(404, gin.H{"error": fmt.Sprintf(constant.CANT_FIND, "Conversation")})
				return
			}
			c.JSON(500, gin.H{"error": constant.SOMETHING_WENT_WRONG})
			return
		}
		c.JSON(200, gin.H{"message": fmt.Sprintf(constant.DELETED, "Conversation")})
	}
}

func listMessages(s inbox.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		messages, totalPages, err := s.ListMessages(c, state.CurrentWorkspace(c), id, page)
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

func pathID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}

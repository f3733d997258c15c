package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/inboxd/pkg/constant"
	"github.com/inboxd/pkg/domains/channel"
	"github.com/inboxd/pkg/dtos"
	"github.com/inboxd/pkg/state"
	"gorm.io/gorm"
)

func ChannelRoutes(r *gin.RouterGroup, s channel.Service) {
	r.GET("", listChannels(s))
	r.POST("", createChannel(s))
	r.DELETE("/:id", deleteChannel(s))
}

func listChannels(s channel.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		accounts, err := s.List(c, state.CurrentWorkspace(c))
		if err != nil {
			c.JSON(500, gin.H{"error": constant.SOMETHING_WENT_WRONG})
			return
		}
		c.JSON(200, gin.H{"channels": accounts})
	}
}

func createChannel(s channel.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		var req dtos.DTOForChannelCreate
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		account, err := s.Create(c, state.CurrentWorkspace(c), req)
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		c.JSON(201, gin.H{
			"message": fmt.Sprintf(constant.CREATED, "Channel"),
			"channel": account,
		})
	}
}

func deleteChannel(s channel.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		if err := s.Delete(c, state.CurrentWorkspace(c), id); err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(404, gin.H{"error": fmt.Sprintf(constant.CANT_FIND, "Channel")})
				return
			}
			c.JSON(500, gin.H{"error": constant.SOMETHING_WENT_WRONG})
			return
		}
		c.JSON(200, gin.H{"message": fmt.Sprintf(constant.DELETED, "Channel")})
	}
}

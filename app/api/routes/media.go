package routes

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/inboxd/pkg/constant"
	"github.com/inboxd/pkg/domains/media"
	"github.com/inboxd/pkg/state"
	"gorm.io/gorm"
)

func MediaRoutes(r *gin.RouterGroup, s media.Service) {
	r.GET("/messages/:id/media", fetchMedia(s))
}

// fetchMedia proxies WhatsApp media through the gateway so the browser
// never needs the account credential; Meta media redirects to the CDN url.
func fetchMedia(s media.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		content, err := s.Fetch(c, state.CurrentWorkspace(c), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, media.ErrNoMedia) {
				c.JSON(404, gin.H{"error": fmt.Sprintf(constant.CANT_FIND, "Media")})
				return
			}
			c.JSON(502, gin.H{"error": constant.SOMETHING_WENT_WRONG})
			return
		}

		if content.RedirectURL != "" {
			c.Redirect(302, content.RedirectURL)
			return
		}
		c.Data(200, content.Mimetype, content.Data)
	}
}

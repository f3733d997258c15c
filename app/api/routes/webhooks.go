package routes

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/inboxd/pkg/constant"
	"github.com/inboxd/pkg/domains/webhook"
	"github.com/inboxd/pkg/providers/evolution"
	"github.com/inboxd/pkg/providers/meta"
)

// WebhookRoutes are unauthenticated: providers cannot carry our session
// tokens. Evolution additionally posts some events to per-event subpaths,
// so a catch-all parameter route accepts those too.
func WebhookRoutes(r *gin.RouterGroup, s webhook.Service, metaVerifyToken string) {
	r.POST("/evolution", evolutionWebhook(s))
	r.POST("/evolution/:event", evolutionWebhook(s))
	r.GET("/meta", metaVerify(metaVerifyToken))
	r.POST("/meta", metaWebhook(s))
}

func evolutionWebhook(s webhook.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		var payload evolution.WebhookPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		// Some gateway configs omit the event field from subpath posts.
		if payload.Event == "" {
			payload.Event = c.Param("event")
		}

		c.JSON(200, ackBody(s.HandleEvolution(c, &payload)))
	}
}

// ackBody shapes the always-200 acknowledgement: the outcome rides as a
// boolean flag, and a processing error degrades to a bare receipt so the
// gateway never retries.
func ackBody(ack string) gin.H {
	body := gin.H{"received": true}
	switch ack {
	case webhook.AckProcessed:
		body["processed"] = true
	case webhook.AckDuplicate:
		body["duplicate"] = true
	case webhook.AckSkipped:
		body["skipped"] = true
	}
	return body
}

// metaVerify answers the Graph API subscription handshake: echo the
// challenge when mode and token match, 403 otherwise.
func metaVerify(verifyToken string) func(c *gin.Context) {
	return func(c *gin.Context) {
		mode := c.Query("hub.mode")
		token := c.Query("hub.verify_token")
		challenge := c.Query("hub.challenge")

		if mode == "subscribe" && token == verifyToken && challenge != "" {
			c.String(200, challenge)
			return
		}
		c.JSON(403, gin.H{"error": "verification failed"})
	}
}

func metaWebhook(s webhook.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		var payload meta.WebhookPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		ack, err := s.HandleMeta(c, &payload)
		if err != nil {
			if errors.Is(err, webhook.ErrUnknownObject) {
				c.JSON(400, gin.H{"error": err.Error()})
				return
			}
			c.JSON(200, gin.H{"received": true})
			return
		}
		c.JSON(200, ackBody(ack))
	}
}

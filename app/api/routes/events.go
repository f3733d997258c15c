package routes

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inboxd/pkg/broadcast"
	"github.com/inboxd/pkg/state"
)

func EventRoutes(r *gin.RouterGroup, hub *broadcast.Hub) {
	r.GET("", stream(hub))
}

// stream holds the request open as a text/event-stream connection and
// relays hub frames to it. The buffered channel decouples publishers from
// slow clients: a full buffer drops the frame for this viewer only.
func stream(hub *broadcast.Hub) func(c *gin.Context) {
	return func(c *gin.Context) {
		workspaceID := state.CurrentWorkspace(c)

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")
		c.Writer.WriteHeader(200)

		io.WriteString(c.Writer, ": connected\n\n")
		c.Writer.Flush()

		frames := make(chan string, 16)
		unsubscribe := hub.Subscribe(workspaceID, func(frame string) error {
			select {
			case frames <- frame:
				return nil
			default:
				return errors.New("viewer buffer full")
			}
		})
		defer unsubscribe()

		heartbeat := time.NewTicker(25 * time.Second)
		defer heartbeat.Stop()

		done := c.Request.Context().Done()
		for {
			select {
			case <-done:
				return
			case frame := <-frames:
				if _, err := io.WriteString(c.Writer, frame); err != nil {
					return
				}
				c.Writer.Flush()
			case <-heartbeat.C:
				if _, err := io.WriteString(c.Writer, ": ping\n\n"); err != nil {
					return
				}
				c.Writer.Flush()
			}
		}
	}
}

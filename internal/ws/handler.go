package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The ops API sits behind auth middleware; origin checks add nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsHandler upgrades an authenticated ops connection and streams
// submission lifecycle events to it.
func EventsHandler(hub *EventHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hub == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "realtime not available"})
			return
		}
		if _, ok := c.Get("user"); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := newEventClient(hub, conn)
		hub.register <- client

		go client.writePump()
		client.readPump()
	}
}

package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocket streams one session's event bus over a long-lived connection,
// one JSON line per event. Backpressure on the underlying bus channel is
// the subscriber's problem to keep up with; the bus itself never drops.
func (s *Server) websocket(c *gin.Context) {
	sess, err := s.Manager.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error_kind": "not_found", "reason": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	stream, unsub := sess.Subscribe()
	defer unsub()

	for evt := range stream {
		if err := conn.WriteJSON(evt); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}

package server

import (
	"net/http"

	"github.com/gorilla/websocket"

	"dmscreen/core/viewer"
	"dmscreen/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The server binds to the local machine; viewer windows open with a
	// file-less origin, so origin checks stay off.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewerWSHandler attaches an audience display window.
func (h *APIHandler) ViewerWSHandler(w http.ResponseWriter, r *http.Request) {
	h.serveWS(w, r, viewer.RoleViewer)
}

// PlayerWSHandler attaches the player bridge page.
func (h *APIHandler) PlayerWSHandler(w http.ResponseWriter, r *http.Request) {
	h.serveWS(w, r, viewer.RolePlayer)
}

func (h *APIHandler) serveWS(w http.ResponseWriter, r *http.Request, role string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := &viewer.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Role: role,
	}
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

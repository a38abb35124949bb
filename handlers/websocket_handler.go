package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/bracketforge/bracketforge/brackets"
	"github.com/bracketforge/bracketforge/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Viewer connections are public; origin filtering belongs to the
		// deployment's reverse proxy.
		return true
	},
}

type WebSocketHandler struct {
	hub               *brackets.Hub
	tournamentService services.TournamentService
}

func NewWebSocketHandler(hub *brackets.Hub, ts services.TournamentService) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, tournamentService: ts}
}

// ServeWs handles GET /ws/tournaments/{tournamentID}: it joins the viewer
// to the tournament's room. Joining delivers no replay; clients fetch the
// current tournament and match state over HTTP after connecting.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if _, err := h.tournamentService.GetTournamentByID(r.Context(), tournamentID); err != nil {
		mapServiceError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("failed to upgrade websocket connection",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: brackets.RoomID(tournamentID),
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

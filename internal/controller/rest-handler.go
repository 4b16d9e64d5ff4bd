package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TerribleTurtle/squad-sync/pkg/rest"
)

func (c controller) getRoomClips(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	if roomId == "" {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "room id was not provided"})
		return
	}

	clips, err := c.roomService.GetRoomClips(r.Context(), roomId)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to get room clips", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"clips": clips})
}

package handlers

import (
	"net/http"

	"github.com/infotechopyra0-del/occult369-sub000/internal/transport"
)

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"env":    s.Cfg.Env,
	})
}

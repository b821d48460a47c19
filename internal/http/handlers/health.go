package handlers

import (
	"net/http"
)

// Health is the liveness check for the api binary.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

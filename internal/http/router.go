package http

import (
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type RouterConfig struct {
	Rooms        *RoomHandler
	Reservations *ReservationHandler
	Middleware   []func(http.Handler) http.Handler
	Logger       *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	router := httprouter.New()
	responder := newResponder(cfg.Logger)

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responder.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{Message: localizedStatusMessage(http.StatusNotFound)})
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responder.writeJSON(r.Context(), w, http.StatusMethodNotAllowed, errorResponse{Message: localizedStatusMessage(http.StatusMethodNotAllowed)})
	})

	router.GET("/healthz", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		responder.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Reservations != nil {
		h := cfg.Reservations
		router.POST("/previews", h.Preview)
		router.GET("/reservations", h.List)
		router.POST("/reservations", h.Submit)
		router.GET("/reservations/:id", h.Get)
		router.GET("/reservations/:id/calendar.ics", h.Calendar)
		router.POST("/reservations/:id/approve", h.ApproveAll)
		router.POST("/reservations/:id/deny", h.DenyAll)
		router.POST("/reservations/:id/items/:item/approve", h.ApproveItem)
		router.POST("/reservations/:id/items/:item/deny", h.DenyItem)
	}

	if cfg.Rooms != nil {
		h := cfg.Rooms
		router.GET("/rooms", h.List)
		router.POST("/rooms", h.Create)
		router.PUT("/rooms/:id", h.Update)
		router.DELETE("/rooms/:id", h.Delete)
		router.GET("/rooms/:id/bookings", h.Bookings)
	}

	var handler http.Handler = router
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

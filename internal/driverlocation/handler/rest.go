package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"laundry-ops/backend/internal/driverlocation/domain"
	"laundry-ops/backend/internal/driverlocation/service"
	"laundry-ops/backend/internal/platform/httpjson"
	"laundry-ops/backend/internal/platform/rbac"
	"laundry-ops/backend/internal/server/middleware"
	userdomain "laundry-ops/backend/internal/user/domain"
)

const maxFrameBytes = 64 << 10

// REST serves the HTTP companions of the driver-location channel. Routes expect middleware.RequireStaff
// to have placed the caller in the request context.
type REST struct {
	ingestor *service.Ingestor
}

// NewREST returns the REST handlers.
func NewREST(ingestor *service.Ingestor) *REST {
	return &REST{ingestor: ingestor}
}

// PostLocation ingests one frame from the calling driver: 202 with the snapshot, 400 for a dropped
// frame, 502 when the store fails.
func (h *REST) PostLocation(w http.ResponseWriter, r *http.Request) {
	s, err := rbac.RequireRole(r.Context(), userdomain.RoleDriver)
	if err != nil {
		httpjson.WriteError(w, r, rbac.Status(err), err.Error())
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBytes))
	if err != nil {
		httpjson.WriteError(w, r, http.StatusBadRequest, "unreadable body")
		return
	}
	snap, err := h.ingestor.IngestRaw(r.Context(), service.Driver{UserID: s.UserID, BranchID: s.BranchID, SessionID: s.SessionID}, raw)
	switch {
	case err == nil:
		httpjson.WriteJSON(w, r, http.StatusAccepted, snap)
	case errors.Is(err, service.ErrPersistFailed):
		log.Printf("driverlocation: ingest from %s: %v", s.UserID, err)
		httpjson.WriteError(w, r, http.StatusBadGateway, "location could not be stored")
	default:
		httpjson.WriteError(w, r, http.StatusBadRequest, err.Error())
	}
}

type latestResponse struct {
	Locations []*domain.Snapshot `json:"locations"`
}

// GetLatest returns the newest location per driver, optionally restricted by repeated driverId params.
func (h *REST) GetLatest(w http.ResponseWriter, r *http.Request) {
	if _, err := rbac.RequireRole(r.Context(), userdomain.RoleAdmin, userdomain.RoleSuperAdmin); err != nil {
		httpjson.WriteError(w, r, rbac.Status(err), err.Error())
		return
	}
	rows, err := h.ingestor.Latest(r.Context(), r.URL.Query()["driverId"])
	if err != nil {
		log.Printf("driverlocation: latest locations: %v", err)
		httpjson.WriteError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	if rows == nil {
		rows = []*domain.Snapshot{}
	}
	httpjson.WriteJSON(w, r, http.StatusOK, latestResponse{Locations: rows})
}

type historyResponse struct {
	DriverID  string             `json:"driverId"`
	Locations []*domain.Snapshot `json:"locations"`
}

// GetHistory returns a driver's history newest first. Admins may read any driver; drivers only themselves.
func (h *REST) GetHistory(w http.ResponseWriter, r *http.Request) {
	driverID := r.PathValue("driverId")
	if _, err := rbac.RequireSelfOrRole(r.Context(), driverID, userdomain.RoleAdmin, userdomain.RoleSuperAdmin); err != nil {
		httpjson.WriteError(w, r, rbac.Status(err), err.Error())
		return
	}
	q, err := historyQuery(r)
	if err != nil {
		httpjson.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := h.ingestor.Store().DriverLocationHistory(r.Context(), driverID, q)
	if err != nil {
		log.Printf("driverlocation: history for %s: %v", driverID, err)
		httpjson.WriteError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	if rows == nil {
		rows = []*domain.Snapshot{}
	}
	httpjson.WriteJSON(w, r, http.StatusOK, historyResponse{DriverID: driverID, Locations: rows})
}

func historyQuery(r *http.Request) (domain.HistoryQuery, error) {
	var q domain.HistoryQuery
	v := r.URL.Query()
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, errors.New("limit must be a non-negative integer")
		}
		q.Limit = n
	}
	if s := v.Get("sinceMinutes"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, errors.New("sinceMinutes must be a non-negative integer")
		}
		q.SinceMinutes = n
	}
	return q, nil
}

// Routes registers the REST routes on mux behind staff authentication.
func (h *REST) Routes(mux *http.ServeMux, resolver middleware.IdentityResolver) {
	auth := middleware.RequireStaff(resolver)
	mux.Handle("POST /api/driver/location", auth(http.HandlerFunc(h.PostLocation)))
	mux.Handle("GET /api/driver-locations", auth(http.HandlerFunc(h.GetLatest)))
	mux.Handle("GET /api/drivers/{driverId}/location-history", auth(http.HandlerFunc(h.GetHistory)))
}

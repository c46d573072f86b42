package server

import (
	"net/http"

	deliverydomain "laundry-ops/backend/internal/delivery/domain"
	deliveryhandler "laundry-ops/backend/internal/delivery/handler"
	locationdomain "laundry-ops/backend/internal/driverlocation/domain"
	locationhandler "laundry-ops/backend/internal/driverlocation/handler"
	locationservice "laundry-ops/backend/internal/driverlocation/service"
	healthhandler "laundry-ops/backend/internal/health/handler"
	"laundry-ops/backend/internal/policy/engine"
	"laundry-ops/backend/internal/realtime"
	"laundry-ops/backend/internal/server/middleware"
)

// WebSocket paths served by the router.
const (
	PathDeliveryOrders = "/ws/delivery-orders"
	PathDriverLocation = "/ws/driver-location"
)

// Deps holds the dependencies for the HTTP and WebSocket surface.
type Deps struct {
	// Resolver resolves staff and portal identities for upgrades and REST routes. Required.
	Resolver middleware.IdentityResolver
	// Policy decides which staff roles may open each channel. Required.
	Policy engine.AdmissionEvaluator
	// Deliveries holds delivery-orders subscribers. Share it with the broadcaster. Required.
	Deliveries *realtime.Registry[deliverydomain.Descriptor]
	// Ingestor persists and fans out driver locations. Required.
	Ingestor *locationservice.Ingestor
	// CatchUp bounds the history replayed to a driver on connect. A zero Limit disables replay.
	CatchUp locationdomain.HistoryQuery
	// Conn tunes every accepted connection's send path.
	Conn realtime.ConnOptions
	// Metrics records connection metrics. If nil, nothing is recorded.
	Metrics *realtime.Metrics
	// Recorder audits upgrade decisions. If nil, decisions are not audited.
	Recorder realtime.AdmissionRecorder
	// HealthPinger is used by /healthz (e.g. *sql.DB). If nil, the DB check is skipped.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used by /healthz (e.g. the OPA evaluator). If nil, the policy check is skipped.
	HealthPolicyChecker healthhandler.PolicyChecker
	// CheckOrigin overrides the upgrader's same-origin check when set.
	CheckOrigin func(r *http.Request) bool
}

// NewHandler builds the full HTTP surface:
//   - /ws/delivery-orders      → internal/delivery/handler
//   - /ws/driver-location      → internal/driverlocation/handler
//   - /ws/* (anything else)    → transport destroyed
//   - /api/driver/location, /api/driver-locations, /api/drivers/{id}/location-history
//     → internal/driverlocation/handler REST
//   - /healthz                 → internal/health/handler
//
// Every request passes through the access log.
func NewHandler(deps Deps) http.Handler {
	channels := map[string]realtime.Channel{
		PathDeliveryOrders: deliveryhandler.NewChannel(deps.Resolver, deps.Policy, deps.Deliveries),
		PathDriverLocation: locationhandler.NewChannel(deps.Resolver, deps.Policy, deps.Ingestor, deps.CatchUp),
	}
	opts := []realtime.RouterOption{
		realtime.WithMetrics(deps.Metrics),
		realtime.WithClientIP(middleware.ClientIP),
	}
	if deps.Recorder != nil {
		opts = append(opts, realtime.WithRecorder(deps.Recorder))
	}
	if deps.CheckOrigin != nil {
		opts = append(opts, realtime.WithCheckOrigin(deps.CheckOrigin))
	}

	mux := http.NewServeMux()
	mux.Handle("/ws/", realtime.NewRouter(channels, deps.Conn, opts...))
	locationhandler.NewREST(deps.Ingestor).Routes(mux, deps.Resolver)
	mux.Handle("/healthz", healthhandler.NewServer(deps.HealthPinger, deps.HealthPolicyChecker))

	return middleware.Logging(mux)
}

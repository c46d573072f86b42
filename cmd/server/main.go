package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"laundry-ops/backend/internal/audit"
	auditrepo "laundry-ops/backend/internal/audit/repository"
	"laundry-ops/backend/internal/config"
	"laundry-ops/backend/internal/db"
	"laundry-ops/backend/internal/delivery/broadcast"
	"laundry-ops/backend/internal/delivery/consumer"
	deliverydomain "laundry-ops/backend/internal/delivery/domain"
	"laundry-ops/backend/internal/delivery/tracking"
	locationdomain "laundry-ops/backend/internal/driverlocation/domain"
	"laundry-ops/backend/internal/driverlocation/mirror"
	locationrepo "laundry-ops/backend/internal/driverlocation/repository"
	locationservice "laundry-ops/backend/internal/driverlocation/service"
	healthhandler "laundry-ops/backend/internal/health/handler"
	identityservice "laundry-ops/backend/internal/identity/service"
	"laundry-ops/backend/internal/policy/engine"
	portalrepo "laundry-ops/backend/internal/portal/repository"
	"laundry-ops/backend/internal/realtime"
	"laundry-ops/backend/internal/security"
	"laundry-ops/backend/internal/server"
	sessionrepo "laundry-ops/backend/internal/session/repository"
	"laundry-ops/backend/internal/telemetry"
	telemetryotel "laundry-ops/backend/internal/telemetry/otel"
	"laundry-ops/backend/internal/telemetry/producer"
	userrepo "laundry-ops/backend/internal/user/repository"
)

const serviceName = "laundry-realtime"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	metrics, err := realtime.NewMetrics(providers.Meter("laundry-ops/backend/realtime"))
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("JWT_PUBLIC_KEY: %v", err)
	}
	tokens := security.NewTokenProvider(nil, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	var portal identityservice.PortalRepo
	switch cfg.PortalSessionBackend {
	case config.PortalBackendRedis:
		rdb := portalrepo.NewRedisRepository(portalrepo.RedisOpts{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		if err := rdb.Ping(ctx); err != nil {
			log.Printf("portal: redis ping: %v", err)
		}
		portal = rdb
	case config.PortalBackendMemory:
		portal = portalrepo.NewMemoryRepository()
	default:
		portal = portalrepo.NewPostgresRepository(conn)
	}
	resolver := identityservice.NewResolver(tokens, sessionrepo.NewPostgresRepository(conn), userrepo.NewPostgresRepository(conn), portal,
		identityservice.ResolverConfig{StaffCookie: cfg.StaffSessionCookie, PortalCookie: cfg.PortalSessionCookie})

	var policy engine.AdmissionEvaluator = engine.NewStaticEvaluator()
	var policyChecker healthhandler.PolicyChecker
	if opa, err := engine.NewOPAEvaluator(ctx, engine.DefaultAdmissionPolicy); err != nil {
		log.Printf("policy: OPA unavailable, using static role table: %v", err)
	} else {
		policy = opa
		policyChecker = opa
	}

	kafkaProducer := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AnalyticsKafkaTopic)
	defer kafkaProducer.Close()
	emitter := telemetry.Fanout{kafkaProducer, telemetryotel.NewEventEmitter(providers.LoggerProvider)}

	locations := locationrepo.NewPostgresRepository(conn)
	ingestOpts := []locationservice.Option{locationservice.WithEmitter(emitter), locationservice.WithMetrics(metrics)}
	if m := mirror.NewInfluxMirror(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket); m != nil {
		defer m.Close()
		ingestOpts = append(ingestOpts, locationservice.WithMirror(m))
	}
	ingestor := locationservice.NewIngestor(locations, realtime.NewRegistry[string](), ingestOpts...)

	deliveries := realtime.NewRegistry[deliverydomain.Descriptor]()
	broadcaster := broadcast.New(deliveries,
		tracking.NewPostgresProvider(conn, locations, cfg.AssumedSpeedKph),
		broadcast.WithMetrics(metrics),
		broadcast.WithTracer(providers.Tracer("laundry-ops/backend/delivery")),
	)

	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn))
	handler := server.NewHandler(server.Deps{
		Resolver:   resolver,
		Policy:     policy,
		Deliveries: deliveries,
		Ingestor:   ingestor,
		CatchUp: locationdomain.HistoryQuery{
			Limit:        cfg.CatchUpHistoryLimit,
			SinceMinutes: cfg.CatchUpSinceMinutes,
		},
		Conn: realtime.ConnOptions{
			SendBuffer:   cfg.SendBufferSize,
			WriteTimeout: cfg.WriteTimeout(),
		},
		Metrics:             metrics,
		Recorder:            auditLogger,
		HealthPinger:        conn,
		HealthPolicyChecker: policyChecker,
	})

	var wg sync.WaitGroup
	if reader := consumer.NewKafkaReader(cfg.KafkaBrokersList(), cfg.DeliveryEventsTopic, cfg.KafkaGroupID); reader != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("delivery: consuming events from %s (group %s)", cfg.DeliveryEventsTopic, cfg.KafkaGroupID)
			if err := consumer.New(reader, broadcaster).Run(ctx); err != nil {
				log.Printf("delivery: consumer stopped: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	// Hijacked WebSocket connections are not tracked by Shutdown.
	deliveries.CloseAll()
	ingestor.Viewers().CloseAll()
	wg.Wait()
	auditLogger.Wait()

	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

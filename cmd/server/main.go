package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	audithandler "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/audit/handler"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/consent"
	consenthandler "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/consent/handler"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/dpia"
	dpiahandler "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/dpia/handler"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/gateway"
	gatewayhandler "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/gateway/handler"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/jwt"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/platform/config"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/platform/httpserver"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/platform/logger"
	platformmetrics "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/platform/metrics"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/platform/middleware"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/platform/postgres"
	platformredis "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/platform/redis"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/platform/tracing"
	rightshandler "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/handler"
	rightsmetrics "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/metrics"
	rightsservice "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/service"
	disputestore "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/store/dispute"
	oppositionstore "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/store/opposition"
	tenanthandler "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/tenant/handler"
	tenantmetrics "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/tenant/metrics"
	tenantservice "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/tenant/service"
	tenantstore "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/tenant/store"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/user"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	auditpublisher "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit/publisher"
	auditmemory "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit/store/memory"
	auditpostgres "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit/store/postgres"
	auditworker "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit/worker"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/tx"
)

// stores groups every persistence port so wiring can swap the whole set
// between postgres and in-memory with one decision.
type stores struct {
	tenants     tenantservice.Store
	users       user.Store
	consents    consent.Store
	oppositions rightsservice.OppositionStore
	disputes    rightsservice.DisputeStore
	assessments dpia.Store
	audit       audit.Store
}

func buildStores(db *sql.DB) stores {
	if db != nil {
		return stores{
			tenants:     tenantstore.NewPostgres(db),
			users:       user.NewPostgres(db),
			consents:    consent.NewPostgres(db),
			oppositions: oppositionstore.NewPostgres(db),
			disputes:    disputestore.NewPostgres(db),
			assessments: dpia.NewPostgresStore(db),
			audit:       auditpostgres.New(db),
		}
	}
	return stores{
		tenants:     tenantstore.NewInMemory(),
		users:       user.NewInMemoryStore(),
		consents:    consent.NewInMemoryStore(),
		oppositions: oppositionstore.NewInMemoryStore(),
		disputes:    disputestore.NewInMemoryStore(),
		assessments: dpia.NewInMemoryStore(),
		audit:       auditmemory.New(),
	}
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, shutdownTracing, err := tracing.Setup(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		log.Info("postgres stores selected")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}
	st := buildStores(db)

	publisher := auditpublisher.New(st.audit)

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var throttle gateway.Throttle
	if redisClient != nil {
		defer redisClient.Close()
		throttle = gateway.NewRedisThrottle(redisClient.Client, cfg.InvocationsPerMinute)
		log.Info("redis throttle selected", "limit_per_minute", cfg.InvocationsPerMinute)
	} else {
		throttle = gateway.NewMemoryThrottle(cfg.InvocationsPerMinute)
		log.Warn("REDIS_URL not set, using in-process throttle")
	}

	var model gateway.AIModel
	if cfg.ModelURL != "" {
		model = gateway.NewHTTPModel(cfg.ModelURL)
	} else {
		model = gateway.EchoModel{}
		log.Warn("AI_MODEL_URL not set, using echo model backend")
	}

	tenants := tenantservice.New(st.tenants,
		tenantservice.WithLogger(log),
		tenantservice.WithAuditPublisher(publisher),
		tenantservice.WithMetrics(tenantmetrics.New()),
	)
	consentOpts := []consent.Option{
		consent.WithLogger(log),
		consent.WithAuditPublisher(publisher),
	}
	if db != nil {
		consentOpts = append(consentOpts, consent.WithStoreTx(tx.NewPostgres(db)))
	}
	consents := consent.NewService(st.consents, consentOpts...)
	assessments := dpia.NewService(st.assessments,
		dpia.WithLogger(log),
		dpia.WithAuditPublisher(publisher),
	)

	rightsOpts := []rightsservice.Option{
		rightsservice.WithLogger(log),
		rightsservice.WithAuditPublisher(publisher),
		rightsservice.WithMetrics(rightsmetrics.New()),
	}
	if db != nil {
		rightsOpts = append(rightsOpts, rightsservice.WithStoreTx(tx.NewPostgres(db)))
	}
	oppositions := rightsservice.NewOppositionService(st.oppositions, rightsOpts...)
	disputes := rightsservice.NewDisputeService(st.disputes, rightsOpts...)
	suspensions := rightsservice.NewSuspensionService(st.users, st.oppositions, st.disputes, consents, rightsOpts...)

	gatewaySvc := gateway.NewService(tenants, assessments, consents, st.users, throttle, model,
		gateway.WithLogger(log),
		gateway.WithAuditPublisher(publisher),
		gateway.WithMetrics(gateway.NewMetrics()),
	)

	validator := jwt.NewValidator(cfg.JWTSigningKey)
	router := buildRouter(cfg, log, validator, tenants, consents, assessments, oppositions, disputes, suspensions, gatewaySvc, publisher)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		producer, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.DefaultProduceTopic(cfg.Kafka.Topic),
		)
		if err != nil {
			return err
		}
		defer producer.Close()

		outbox := auditworker.New(db, producer, cfg.Kafka.Topic, log)
		g.Go(func() error {
			err := outbox.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		log.Info("audit outbox worker started", "topic", cfg.Kafka.Topic)
	} else if len(cfg.Kafka.Brokers) == 0 {
		log.Warn("AUDIT_KAFKA_BROKERS not set, audit events stay in local store only")
	}

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func buildRouter(
	cfg config.Server,
	log *slog.Logger,
	validator middleware.JWTValidator,
	tenants *tenantservice.Service,
	consents *consent.Service,
	assessments *dpia.Service,
	oppositions *rightsservice.OppositionService,
	disputes *rightsservice.DisputeService,
	suspensions *rightsservice.SuspensionService,
	gatewaySvc *gateway.Service,
	trail audithandler.Trail,
) http.Handler {
	m := platformmetrics.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency(m))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Tenant provisioning is the platform operator surface; the deployment
	// fronts it with its own ingress auth, no data-subject JWT involved.
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		tenanthandler.New(tenants, log).Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(validator, log))

		audithandler.New(trail, log).Register(r)
		consenthandler.New(consents, cfg.ConsentTTL, log).Register(r)
		dpiahandler.New(assessments, log).Register(r)
		rightshandler.New(oppositions, disputes, suspensions, log).Register(r)
		gatewayhandler.New(gatewaySvc, log).Register(r)
	})

	return r
}

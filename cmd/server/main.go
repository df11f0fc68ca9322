// Command server runs the confidential passport registry: HTTP API,
// Postgres or in-memory stores, optional Redis metadata cache, and the
// audit pipeline.
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

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	accesshandler "github.com/CliftonVon/ConfidentialDigitalPassport/internal/access/handler"
	accesssvc "github.com/CliftonVon/ConfidentialDigitalPassport/internal/access/service"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/audit"
	audithandler "github.com/CliftonVon/ConfidentialDigitalPassport/internal/audit/handler"
	authorityhandler "github.com/CliftonVon/ConfidentialDigitalPassport/internal/authority/handler"
	authoritysvc "github.com/CliftonVon/ConfidentialDigitalPassport/internal/authority/service"
	authoritystore "github.com/CliftonVon/ConfidentialDigitalPassport/internal/authority/store"
	authoritymem "github.com/CliftonVon/ConfidentialDigitalPassport/internal/authority/store/memory"
	authoritypg "github.com/CliftonVon/ConfidentialDigitalPassport/internal/authority/store/postgres"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/confidential/engine"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/environment"
	jwttoken "github.com/CliftonVon/ConfidentialDigitalPassport/internal/jwt_token"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/platform/config"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/platform/httpserver"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/platform/logger"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/platform/metrics"
	platformredis "github.com/CliftonVon/ConfidentialDigitalPassport/internal/platform/redis"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/cache"
	recordhandler "github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/handler"
	recordsvc "github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/service"
	recordstore "github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/store"
	recordmem "github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/store/memory"
	recordpg "github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/store/postgres"
	httptransport "github.com/CliftonVon/ConfidentialDigitalPassport/internal/transport/http"
	verifhandler "github.com/CliftonVon/ConfidentialDigitalPassport/internal/verification/handler"
	verifsvc "github.com/CliftonVon/ConfidentialDigitalPassport/internal/verification/service"
	verifstore "github.com/CliftonVon/ConfidentialDigitalPassport/internal/verification/store"
	verifmem "github.com/CliftonVon/ConfidentialDigitalPassport/internal/verification/store/memory"
	verifpg "github.com/CliftonVon/ConfidentialDigitalPassport/internal/verification/store/postgres"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
)

const shutdownTimeout = 10 * time.Second

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

	stores, db, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("record cache enabled", "ttl", cfg.RecordCacheTTL.String())
	}

	sinks := []audit.Sink{stores.audit}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		log.Info("audit events mirrored to kafka", "topic", cfg.KafkaAuditTopic)
	}
	publisher := audit.NewPublisher(log, sinks, audit.WithAsyncBuffer(256))
	defer publisher.Close()

	m := metrics.New()
	serializer := environment.NewSerializer()
	capability := engine.New()

	authoritySvc := authoritysvc.New(stores.authority, serializer, publisher, log)
	if err := authoritySvc.Bootstrap(ctx, domain.Principal(cfg.AuthorityPrincipal)); err != nil {
		return err
	}

	var recordOpts []recordsvc.Option
	if redisClient != nil {
		recordOpts = append(recordOpts, recordsvc.WithCache(cache.New(redisClient.Client, cfg.RecordCacheTTL)))
	}
	recordSvc := recordsvc.New(
		stores.record, authoritySvc, capability, serializer, publisher, m, log, recordOpts...)
	verifSvc := verifsvc.New(
		stores.verification, authoritySvc, recordSvc, serializer, publisher, m, log)
	accessSvc := accesssvc.New(
		recordSvc, verifSvc, capability, serializer, publisher, m, log)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "passport-registry", "passport-api")

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		Metrics:      m,
		JWTValidator: jwttoken.NewJWTServiceAdapter(jwtService),
		Handlers: []httptransport.Registrar{
			recordhandler.New(recordSvc, log),
			verifhandler.New(verifSvc, log),
			accesshandler.New(accessSvc, log),
			authorityhandler.New(authoritySvc, log),
			audithandler.New(stores.audit, log),
		},
		Health: func(ctx context.Context) error {
			if db != nil {
				if err := db.PingContext(ctx); err != nil {
					return err
				}
			}
			if redisClient != nil {
				return redisClient.Health(ctx)
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("passport registry listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// backingStores groups one store per feature so run can wire services
// without caring which implementation backs them.
type backingStores struct {
	record       recordstore.Store
	verification verifstore.Store
	authority    authoritystore.Store
	audit        audit.Store
}

func openStores(ctx context.Context, cfg config.Server) (backingStores, *sql.DB, error) {
	if cfg.PostgresDSN == "" {
		return backingStores{
			record:       recordmem.New(),
			verification: verifmem.New(),
			authority:    authoritymem.New(),
			audit:        audit.NewInMemoryStore(),
		}, nil, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return backingStores{}, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return backingStores{}, nil, err
	}

	recordStore := recordpg.New(db)
	verifStore := verifpg.New(db)
	authorityStore := authoritypg.New(db)
	auditStore := audit.NewPostgresStore(db)
	for _, ensure := range []func(context.Context) error{
		recordStore.EnsureSchema,
		verifStore.EnsureSchema,
		authorityStore.EnsureSchema,
		auditStore.EnsureSchema,
	} {
		if err := ensure(ctx); err != nil {
			db.Close()
			return backingStores{}, nil, err
		}
	}

	return backingStores{
		record:       recordStore,
		verification: verifStore,
		authority:    authorityStore,
		audit:        auditStore,
	}, db, nil
}

package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/jwfoods/internal/audit"
	"github.com/noah-isme/jwfoods/internal/auth"
	"github.com/noah-isme/jwfoods/internal/cart"
	"github.com/noah-isme/jwfoods/internal/catalog"
	"github.com/noah-isme/jwfoods/internal/checkout"
	"github.com/noah-isme/jwfoods/internal/config"
	"github.com/noah-isme/jwfoods/internal/delivery"
	"github.com/noah-isme/jwfoods/internal/events"
	"github.com/noah-isme/jwfoods/internal/health"
	"github.com/noah-isme/jwfoods/internal/obs"
	"github.com/noah-isme/jwfoods/internal/order"
	"github.com/noah-isme/jwfoods/internal/pricing"
	"github.com/noah-isme/jwfoods/internal/ratelimit"
	"github.com/noah-isme/jwfoods/internal/remote"
	"github.com/noah-isme/jwfoods/internal/resilience"
	"github.com/noah-isme/jwfoods/internal/security"
	"github.com/noah-isme/jwfoods/internal/session"
	"github.com/noah-isme/jwfoods/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "jwfoods")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "jwfoods-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
			Attributes: map[string]string{
				"jwfoods.store_driver":       cfg.StoreDriver,
				"jwfoods.local_pricing_only": strconv.FormatBool(cfg.RemotePreferLocalQuote),
			},
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	backend, err := openStore(ctx, cfg, logger, metricsEnabled)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("open session store")
	}
	defer backend.close()
	sessionStore := store.New(backend.Backend, store.WithLocker(backend.locker), store.WithLogger(logger))

	upstream := func(target string, attempts int) resilience.HTTPClient {
		breaker := resilience.NewBreaker(resilience.BreakerConfig{
			Target:       target,
			MinRequests:  cfg.RemoteBreakerMinReq,
			FailureRatio: cfg.RemoteBreakerRatio,
			OpenFor:      cfg.RemoteBreakerOpenFor,
			Logger:       &logger,
		})
		return resilience.HTTPClient{
			Client:      remote.NewHTTPClient(0),
			Breaker:     breaker,
			Target:      target,
			BaseBackoff: cfg.RemoteBackoff,
			MaxAttempts: attempts,
			Jitter:      0.2,
			Timeout:     cfg.RemoteTimeout,
		}
	}
	remoteClient := remote.New(cfg.RemoteBaseURL,
		upstream(remote.TargetPricing, cfg.RemoteMaxAttempts),
		remote.WithAccounts(upstream(remote.TargetAccounts, 1)),
	)

	book := pricing.NewCoefficientBook(remoteClient, pricing.Coefficients{
		DistanceCoefficient: cfg.Pricing.DefaultDistanceCoefficient,
		WeightCoefficient:   cfg.Pricing.DefaultWeightCoefficient,
	}, logger)
	quoterOpts := []pricing.QuoterOption{pricing.WithWriter(remoteClient), pricing.WithLogger(logger)}
	if !cfg.RemotePreferLocalQuote {
		quoterOpts = append(quoterOpts, pricing.WithPrimary(remoteClient))
	}
	quoter := pricing.NewQuoter(book, quoterOpts...)

	bus := &events.Bus{
		Notifiers: []events.Notifier{events.LogNotifier{Logger: logger}},
		Logger:    logger,
	}
	if cfg.AMQPURL != "" {
		conn, ch, err := events.DialAMQP(cfg.AMQPURL)
		if err != nil {
			logger.Error().Err(err).Msg("connect amqp; events stay in the log")
		} else {
			defer func() { _ = ch.Close(); _ = conn.Close() }()
			publisher, err := events.NewAMQPPublisher(ch, events.Exchange)
			if err != nil {
				logger.Error().Err(err).Msg("declare amqp exchange")
			} else {
				bus.Notifiers = append(bus.Notifiers, publisher)
			}
		}
	}

	catalogService := catalog.NewService(catalog.ServiceConfig{})
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: catalogService})

	deliveryService, err := delivery.NewService(delivery.ServiceConfig{
		Store:  sessionStore,
		Quoter: quoter,
		Events: bus,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise delivery service")
	}
	deliveryHandler := delivery.NewHandler(delivery.HandlerConfig{Service: deliveryService})

	cartService, err := cart.NewService(cart.ServiceConfig{
		Store:      sessionStore,
		Products:   catalogService,
		Deliveries: deliveryService,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise cart service")
	}
	cartHandler := &cart.Handler{Svc: cartService}

	orderService, err := order.NewService(sessionStore)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise order service")
	}
	orderHandler := &order.Handler{Svc: orderService}

	checkoutService, err := checkout.NewService(checkout.ServiceConfig{
		Store:      sessionStore,
		Cart:       cartService,
		Deliveries: deliveryService,
		Orders:     orderService,
		Quoter:     quoter,
		Events:     bus,
		Logger:     logger,
		Config: checkout.Config{
			TaxRate:           cfg.Pricing.TaxRate,
			DefaultDistanceKM: cfg.Pricing.DefaultDistanceKM,
			UnitWeightKG:      cfg.Pricing.UnitWeightKG,
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise checkout service")
	}
	checkoutHandler := checkout.NewHandler(checkoutService)

	authService, err := auth.NewService(auth.Config{
		Store:    sessionStore,
		Accounts: remoteClient,
		Events:   bus,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{Service: authService}
	authMiddleware := auth.Middleware{Service: authService}
	auditRecorder := audit.Recorder{
		Logger: logger.With().Str("component", "audit").Logger(),
		Events: bus,
		Actor: func(r *http.Request) audit.Actor {
			if u, ok := auth.UserFrom(r.Context()); ok {
				return audit.Actor{Kind: audit.ActorKindUser, UserID: u.ID}
			}
			return audit.Actor{Kind: audit.ActorKindAnonymous}
		},
	}

	sessionManager, err := session.NewManager(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise session manager")
	}
	sessionMiddleware := session.Middleware{
		Manager: sessionManager,
		Cookie: session.CookieConfig{
			Name:     cfg.CookieName,
			Domain:   cfg.CookieDomain,
			Secure:   cfg.CookieSecure,
			SameSite: cfg.CookieSameSite,
		},
		Logger: logger,
	}

	authLimiter, err := ratelimit.New(cfg.RateLimitAuth, backend.redis, "ratelimit:auth")
	if err != nil {
		logger.Fatal().Err(err).Str("rate", cfg.RateLimitAuth).Msg("initialise auth rate limiter")
	}
	authThrottle := ratelimit.Handler{
		Limiter: authLimiter,
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate_limit_unavailable") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", session.HeaderToken},
		ExposedHeaders:   []string{"Link", "X-Total-Count", session.HeaderToken},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", !cfg.IsProduction()) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:       health.Probes{Store: backend.Backend, Remote: remoteClient},
		StoreTimeout:  envDurationMillis("HEALTH_READY_STORE_TIMEOUT_MS", 500),
		RemoteTimeout: envDurationMillis("HEALTH_READY_REMOTE_TIMEOUT_MS", 2000),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.Headers{HSTS: cfg.IsProduction(), NoStore: true}.Middleware)
		v.Use(security.BodyLimit{Max: 64 << 10}.Middleware)
		v.Use(sessionMiddleware.Handler)
		v.Use(obs.RequestLogger{Logger: logger}.Middleware)

		catalogHandler.Routes(v)
		v.Route("/delivery", deliveryHandler.Routes)
		v.Route("/cart", cartHandler.Routes)
		v.Route("/checkout", checkoutHandler.Routes)

		v.Route("/auth", func(a chi.Router) {
			a.With(authThrottle.Middleware).Post("/login", authHandler.Login)
			a.With(authThrottle.Middleware).Post("/register", authHandler.Register)
			a.Post("/logout", authHandler.Logout)
			a.Get("/me", authHandler.Me)
			a.Post("/password-strength", authHandler.Strength)
		})

		v.Group(func(authR chi.Router) {
			authR.Use(authMiddleware.RequireUser)
			authR.Route("/orders", orderHandler.Routes)
			authR.With(auditRecorder.Middleware("")).Route("/admin", deliveryHandler.AdminRoutes)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop, release := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer release()
	go func() {
		<-stop.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}()

	logger.Info().
		Str("addr", srv.Addr).
		Str("store", cfg.StoreDriver).
		Bool("local_pricing_only", cfg.RemotePreferLocalQuote).
		Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

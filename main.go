package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rentwise/rentwise/backend/go-services/handlers"
	"github.com/rentwise/rentwise/backend/go-services/internal/auth"
	"github.com/rentwise/rentwise/backend/go-services/internal/authz"
	"github.com/rentwise/rentwise/backend/go-services/internal/config"
	"github.com/rentwise/rentwise/backend/go-services/internal/database"
	"github.com/rentwise/rentwise/backend/go-services/internal/federation"
	"github.com/rentwise/rentwise/backend/go-services/internal/password"
	"github.com/rentwise/rentwise/backend/go-services/internal/revocation"
	"github.com/rentwise/rentwise/backend/go-services/internal/storage"
	"github.com/rentwise/rentwise/backend/go-services/internal/tokens"
	"github.com/rentwise/rentwise/backend/go-services/internal/users"
	"github.com/rentwise/rentwise/backend/go-services/pkg/logger"
	"github.com/rentwise/rentwise/backend/go-services/pkg/metrics"
	"github.com/rentwise/rentwise/backend/go-services/pkg/middleware"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v wechat=%v oidc=%v minio=%v",
		cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.WechatEnabled(), cfg.OIDCEnabled(), cfg.MinIO.Endpoint != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Lightweight CORS for the mini-program and web clients.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})
	r.Use(gin.Logger(), gin.Recovery())

	// Redis backs token revocation and the shared rate limiter. Without it
	// tokens are purely stateless and logout is a no-op.
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			_ = client.Close()
		} else {
			redisClient = client
			defer func() { _ = redisClient.Close() }()
			logger.Infof("connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	// mounted per route group so authenticated callers are keyed by subject
	var rateLimit gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			rateLimit = middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
		} else {
			rateLimit = middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}

	repo, mongoClient := buildUserRepository(ctx, cfg)
	if mongoClient != nil {
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	}

	hasher := password.NewBcryptHasher(cfg.Password.BcryptCost)
	userSvc := users.NewService(repo, hasher)

	var tokenOpts []tokens.Option
	if redisClient != nil {
		tokenOpts = append(tokenOpts, tokens.WithDenylist(revocation.NewRedisDenylist(redisClient, "")))
	}
	engine, err := tokens.New(cfg, tokenOpts...)
	if err != nil {
		logger.Fatalf("token engine: %v", err)
	}

	var fed *federation.Adapter
	if exchangers := buildExchangers(ctx, cfg); len(exchangers) > 0 {
		fed = federation.NewAdapter(userSvc, engine, cfg.FederationTimeout, exchangers)
		logger.Infof("federated login providers: %v", fed.Providers())
	} else {
		logger.Warnf("no federation provider configured; federated login disabled")
	}

	authSvc := auth.NewService(userSvc, hasher, engine, authz.NewDecider(userSvc), fed)
	avatars := buildAvatarStore(ctx, cfg)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when the identity store (and Redis, when configured) answer
	r.GET("/ready", func(c *gin.Context) {
		pctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ready := true
		deps := map[string]bool{"users": true, "redis": true}
		if mongoClient != nil {
			if err := mongoClient.Ping(pctx, nil); err != nil {
				deps["users"] = false
				ready = false
			}
		}
		if cfg.Redis.Host != "" {
			if redisClient == nil || redisClient.Ping(pctx).Err() != nil {
				deps["redis"] = false
				ready = false
			}
		}
		status, body := http.StatusOK, "ready"
		if !ready {
			status, body = http.StatusServiceUnavailable, "not_ready"
		}
		c.JSON(status, gin.H{"status": body, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	handlers.RegisterRoutes(r, handlers.Deps{Auth: authSvc, Users: userSvc, Avatars: avatars, RateLimit: rateLimit})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting identity service on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown: %v", err)
	}
}

// buildUserRepository connects to MongoDB when MONGODB_URI is set and falls
// back to the in-memory repository otherwise.
func buildUserRepository(ctx context.Context, cfg *config.Config) (users.UserRepository, *mongo.Client) {
	if cfg.MongoDB.URI == "" {
		logger.Warnf("MONGODB_URI not set; using in-memory user store")
		return users.NewMemoryRepository(), nil
	}
	client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	repo := users.NewMongoUserRepository(client.Database(cfg.MongoDB.Database).Collection("users"))
	ictx, cancel := context.WithTimeout(ctx, cfg.MongoDB.Timeout)
	defer cancel()
	if err := repo.EnsureIndexes(ictx); err != nil {
		logger.Fatalf("ensure user indexes: %v", err)
	}
	logger.Infof("using MongoDB user store (db=%s)", cfg.MongoDB.Database)
	return repo, client
}

func buildExchangers(ctx context.Context, cfg *config.Config) map[string]federation.Exchanger {
	exchangers := map[string]federation.Exchanger{}
	if cfg.WechatEnabled() {
		client := &http.Client{Timeout: cfg.FederationTimeout}
		exchangers[federation.ProviderWechat] = federation.NewWechatExchanger(cfg.Wechat, client)
	}
	if cfg.OIDCEnabled() {
		ex, err := federation.NewOIDCExchanger(ctx, cfg.OIDC)
		if err != nil {
			logger.Warnf("failed to initialize OIDC provider %q: %v", cfg.OIDC.Provider, err)
		} else {
			exchangers[cfg.OIDC.Provider] = ex
		}
	}
	return exchangers
}

func buildAvatarStore(ctx context.Context, cfg *config.Config) storage.ObjectStore {
	if cfg.MinIO.Endpoint == "" {
		logger.Warnf("MINIO_ENDPOINT not set; avatars are kept in memory")
		return storage.NewMemoryStorage()
	}
	s, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
	if err != nil {
		logger.Warnf("MinIO unavailable, avatar uploads disabled: %v", err)
		return nil
	}
	return s
}

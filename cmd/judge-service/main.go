package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/http/middleware"
	"codejudge/internal/common/mq"
	"codejudge/internal/common/storage"
	"codejudge/internal/judge/controller"
	"codejudge/internal/judge/problemclient"
	"codejudge/internal/judge/repository"
	"codejudge/internal/judge/sandbox/engine"
	"codejudge/internal/judge/sandbox/profile"
	"codejudge/internal/judge/sandbox/runner"
	"codejudge/internal/judge/service"
	"codejudge/internal/judge/staging"
	"codejudge/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/judge_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(appCfg); err != nil {
		logger.Error(context.Background(), "compiler service stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(appCfg *AppConfig) error {
	ctx := context.Background()

	workspace, err := staging.NewWorkspace(appCfg.Workspace.Root)
	if err != nil {
		return fmt.Errorf("init workspace failed: %w", err)
	}
	if err := workspace.Ensure(); err != nil {
		return fmt.Errorf("prepare workspace failed: %w", err)
	}

	languages, err := profile.NewRegistry(appCfg.Languages)
	if err != nil {
		return fmt.Errorf("init language registry failed: %w", err)
	}
	eng := engine.NewEngine(engine.Config{OutputBytes: appCfg.Judge.OutputBytes})
	jobRunner, err := runner.NewRunner(eng, languages)
	if err != nil {
		return fmt.Errorf("init runner failed: %w", err)
	}
	jobRunner.WithOutputLimit(appCfg.Judge.OutputBytes)

	var redisCache *cache.RedisCache
	if appCfg.Redis.Enabled {
		redisCache, err = cache.NewRedisCacheWithConfig(appCfg.Redis.RedisConfig)
		if err != nil {
			return fmt.Errorf("init redis failed: %w", err)
		}
		defer func() {
			_ = redisCache.Close()
		}()
	}

	httpProblems, err := problemclient.NewClient(appCfg.Problem.BaseURL, appCfg.Problem.Timeout)
	if err != nil {
		return fmt.Errorf("init problem client failed: %w", err)
	}
	var problems service.ProblemSource = httpProblems
	if redisCache != nil {
		cached, err := problemclient.NewCachedClient(httpProblems, redisCache, appCfg.Problem.CacheTTL)
		if err != nil {
			return fmt.Errorf("init problem cache failed: %w", err)
		}
		problems = cached
	}

	sinks, closeSinks, err := buildSinks(ctx, appCfg)
	if err != nil {
		return err
	}
	defer closeSinks()
	reporter := repository.NewReporter(appCfg.Reporter.Timeout, sinks...)

	judgeSvc, err := service.NewService(service.Config{
		Stager:            staging.NewStager(workspace, nil),
		Executor:          jobRunner,
		Problems:          problems,
		Reporter:          reporter,
		MaxConcurrentJobs: appCfg.Judge.MaxConcurrentJobs,
		SlotWait:          appCfg.Judge.SlotWait,
	})
	if err != nil {
		return fmt.Errorf("init judge service failed: %w", err)
	}

	var limiter *middleware.FixedWindowLimiter
	if redisCache != nil && appCfg.RateLimit.Enabled {
		limiter = middleware.NewFixedWindowLimiter(redisCache, appCfg.RateLimit.RedisTimeout)
	}

	httpServer := buildHTTPServer(appCfg, judgeSvc, limiter)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("init http listener failed: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "compiler service running",
			zap.String("addr", appCfg.Server.Addr),
			zap.String("workspace", workspace.Root),
		)
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	stopCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(stopCtx); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
	}
	reporter.Wait()
	return nil
}

// buildSinks assembles the verdict sinks. The submission store sink is always on.
func buildSinks(ctx context.Context, appCfg *AppConfig) ([]repository.VerdictSink, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	httpSink, err := repository.NewHTTPVerdictSink(appCfg.Reporter.BaseURL, appCfg.Reporter.Timeout)
	if err != nil {
		return nil, closeAll, fmt.Errorf("init verdict sink failed: %w", err)
	}
	sinks := []repository.VerdictSink{httpSink}

	if appCfg.Kafka.Enabled {
		producer, err := mq.NewKafkaProducer(appCfg.Kafka.KafkaConfig)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("init kafka failed: %w", err)
		}
		closers = append(closers, func() { _ = producer.Close() })
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := producer.Ping(pingCtx); err != nil {
			logger.Warn(ctx, "kafka broker unreachable, verdict events will be retried per publish", zap.Error(err))
		}
		cancel()
		sinks = append(sinks, repository.NewMQVerdictPublisher(producer, appCfg.Kafka.Topic))
	}

	if appCfg.MinIO.Enabled {
		objStorage, err := storage.NewMinIOStorage(appCfg.MinIO.MinIOConfig)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("init minio failed: %w", err)
		}
		bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = objStorage.EnsureBucket(bucketCtx, appCfg.MinIO.Bucket)
		cancel()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("ensure archive bucket failed: %w", err)
		}
		archive, err := repository.NewArchiveVerdictSink(objStorage, appCfg.MinIO.Bucket)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		sinks = append(sinks, archive)
	}
	return sinks, closeAll, nil
}

func buildHTTPServer(appCfg *AppConfig, judgeSvc *service.Service, limiter *middleware.FixedWindowLimiter) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TraceContext())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(appCfg.CORS))

	auth := middleware.CookieAuth(appCfg.Auth)
	controller.Register(router, controller.NewJudgeController(judgeSvc), controller.Guards{
		Run:    []gin.HandlerFunc{auth, middleware.RateLimit(limiter, "run", appCfg.RateLimit)},
		Submit: []gin.HandlerFunc{auth, middleware.RateLimit(limiter, "submit", appCfg.RateLimit)},
	})

	return &http.Server{
		Addr:         appCfg.Server.Addr,
		Handler:      middleware.StripPrefix(appCfg.Server.MountPrefix, router),
		ReadTimeout:  appCfg.Server.ReadTimeout,
		WriteTimeout: appCfg.Server.WriteTimeout,
		IdleTimeout:  appCfg.Server.IdleTimeout,
	}
}

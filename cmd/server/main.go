package main // Entry point package

import (
	"context"      // cancellation of the run and the adapters
	"database/sql" // run history handle
	"errors"       // http.ErrServerClosed checks
	"fmt"          // console output
	"io"           // output writer for the report
	"log"          // Logging library
	"net/http"     // server shutdown sentinel
	"os"           // stdin/stdout and arguments
	"os/signal"    // Ctrl-C stops the run
	"syscall"      // SIGTERM
	"time"         // shutdown timeouts

	"github.com/labstack/echo/v4"  // Echo web framework
	"github.com/redis/go-redis/v9" // Redis client for rate limiting and caching
	"golang.org/x/crypto/bcrypt"   // default cost for hash-password

	"github.com/iliyamo/cinema-ticket-simulator/internal/config"     // Internal config loader
	"github.com/iliyamo/cinema-ticket-simulator/internal/database"   // MySQL connection
	"github.com/iliyamo/cinema-ticket-simulator/internal/handler"    // HTTP handlers
	"github.com/iliyamo/cinema-ticket-simulator/internal/middleware" // rate limit and cache
	"github.com/iliyamo/cinema-ticket-simulator/internal/queue"      // purchase log consumer
	"github.com/iliyamo/cinema-ticket-simulator/internal/repository" // run history
	"github.com/iliyamo/cinema-ticket-simulator/internal/router"     // Internal router setup
	"github.com/iliyamo/cinema-ticket-simulator/internal/service"    // event publisher
	"github.com/iliyamo/cinema-ticket-simulator/internal/sim"        // the simulation
	"github.com/iliyamo/cinema-ticket-simulator/internal/utils"      // password hashing
)

func main() {
	// `server hash-password <plain>` prints a bcrypt hash for OPERATOR_PASSWORD_HASH.
	if len(os.Args) == 3 && os.Args[1] == "hash-password" {
		h, err := utils.HashPassword(os.Args[2], bcrypt.DefaultCost)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(h)
		return
	}

	cfg := config.Load() // Load environment config
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// adapters holds the optional outside connections of one process.
type adapters struct {
	db        *sql.DB
	runs      *repository.RunRepo
	rdb       *redis.Client
	publisher *service.Publisher
}

func (a *adapters) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			log.Printf("rabbitmq: close: %v", err)
		}
		if n := a.publisher.Dropped(); n > 0 {
			log.Printf("rabbitmq: %d purchase events dropped", n)
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func run(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) error {
	simCfg, err := config.AcquireSimulation(cfg, in, out)
	if err != nil {
		return err
	}
	if err := simCfg.Validate(); err != nil {
		return err
	}
	simCfg.Display(out)

	runKey, err := repository.NewRunKey()
	if err != nil {
		return err
	}

	ad := connect(ctx, cfg, runKey)
	defer ad.close()

	if cfg.RunConsumer && cfg.RabbitURL != "" {
		go func() {
			if err := queue.StartPurchaseConsumer(ctx, cfg.RabbitURL, cfg.PurchaseLogDir); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("purchase-consumer: stopped: %v", err)
			}
		}()
	}

	opts := sim.Options{
		TickInterval: cfg.TickInterval,
		PollInterval: cfg.PollInterval,
		ShowTime:     cfg.ShowTime,
	}
	if ad.publisher != nil {
		opts.Observer = ad.publisher
	}
	orch := sim.New(simCfg.Params(), opts)

	var e *echo.Echo
	if cfg.Port != "" {
		e = newServer(cfg, runKey, orch, ad)
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info
		go func() {
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http: %v", err)
			}
		}()
	}

	report, err := orch.Run(ctx)
	if err != nil {
		return err
	}
	printReport(out, report)
	persist(runKey, simCfg, report, ad)

	if e == nil {
		return nil
	}
	if cfg.ServeAfterRun && ctx.Err() == nil {
		log.Printf("run finished; serving until interrupted")
		<-ctx.Done()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// connect opens every configured adapter.  A failing adapter is logged and
// left out; the simulation runs without it.
func connect(ctx context.Context, cfg config.Config, runKey string) *adapters {
	ad := &adapters{}

	if cfg.DBHost != "" {
		db, err := database.Open(ctx, cfg)
		if err != nil {
			log.Printf("db: connect failed, run history disabled: %v", err)
		} else {
			repo := repository.NewRunRepo(db)
			if err := repo.EnsureSchema(ctx); err != nil {
				log.Printf("db: schema failed, run history disabled: %v", err)
				_ = db.Close()
			} else {
				ad.db, ad.runs = db, repo
				if cfg.RunRetention > 0 {
					n, err := repo.DeleteOlderThan(ctx, time.Now().Add(-cfg.RunRetention))
					if err != nil {
						log.Printf("db: prune runs: %v", err)
					} else if n > 0 {
						log.Printf("db: pruned %d old runs", n)
					}
				}
			}
		}
	}

	if cfg.Port != "" {
		ad.rdb = config.NewRedisClient()
	}

	if cfg.RabbitURL != "" {
		p, err := service.Dial(cfg.RabbitURL, runKey)
		if err != nil {
			log.Printf("rabbitmq: events disabled: %v", err)
		} else {
			ad.publisher = p
		}
	}
	return ad
}

func newServer(cfg config.Config, runKey string, orch *sim.Orchestrator, ad *adapters) *echo.Echo {
	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), ad.rdb))

	router.RegisterRoutes(e) // Register application routes
	secret := ""
	if cfg.OperatorEnabled() {
		secret = cfg.JWTSecret
		router.RegisterAuth(e, handler.NewAuthHandler(cfg.OperatorUser, cfg.OperatorHash, cfg.JWTSecret, cfg.AccessTTLMin))
	}
	router.RegisterSimulation(e, handler.NewSimulationHandler(runKey, orch), secret)
	if ad.runs != nil {
		router.RegisterRuns(e, handler.NewRunsHandler(ad.runs), middleware.NewRedisCache(config.LoadCacheConfig(), ad.rdb))
	}
	return e
}

func printReport(out io.Writer, r sim.Report) {
	fmt.Fprintln(out, "System shutdown. Final ticket status:")
	for _, s := range r.Screens {
		fmt.Fprintf(out, "Screen %d: %d tickets remaining.\n", s.Screen, s.Remaining)
	}
	fmt.Fprintf(out, "Run ended (%s): %d sold, %d remaining, %d never released.\n", r.Reason, r.Sold, r.Remaining, r.Lost)
}

// persist stores the run and publishes run.completed.  It uses a fresh
// context so an interrupted run is still recorded.
func persist(runKey string, simCfg config.SimulationConfig, r sim.Report, ad *adapters) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if ad.runs != nil {
		if err := ad.runs.Create(ctx, service.RunFromReport(runKey, simCfg.Params(), r)); err != nil {
			log.Printf("db: save run %s: %v", runKey, err)
		} else {
			log.Printf("db: saved run %s", runKey)
		}
	}
	if ad.publisher != nil {
		if err := ad.publisher.PublishRunCompleted(ctx, service.RunCompletedFromReport(runKey, r)); err != nil {
			log.Printf("rabbitmq: run.completed: %v", err)
		}
	}
}

package main // Entry point package

import (
	"context"       // startup timeouts and shutdown
	"database/sql"  // MySQL handle shared by the store and accounts
	"errors"        // errors.Is on repository sentinels
	"log"           // Logging library
	"net/http"      // http.ErrServerClosed
	"os"            // signals
	"os/signal"     // graceful shutdown
	"syscall"       // SIGTERM
	"time"          // timeouts

	"github.com/labstack/echo/v4"                    // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // recover
	"github.com/redis/go-redis/v9"                   // shared Redis client

	"github.com/valeri1383/SOLENT-APP-VAL/internal/booking"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/catalog"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/config"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/database"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/docstore"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/handler"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/identity"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/middleware"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/queue"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/repository"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/router"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/session"
)

func main() {
	cfg := config.Load() // Load environment config
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, closeStore := openStore(ctx, cfg)
	defer closeStore()

	users := repository.NewUserRepo(store)
	events := repository.NewEventRepo(store)

	var accounts identity.Provider
	if db != nil {
		accounts = identity.NewMySQLProvider(db, users, cfg.BcryptCost)
	} else {
		log.Printf("identity: no MySQL configured, accounts are kept in memory")
		accounts = identity.NewMemoryProvider(users, cfg.BcryptCost)
	}
	promoteAdmins(ctx, users, cfg.AdminEmails)

	// Redis is optional: without it sessions live in process and the
	// cache and rate limiters pass everything through.
	redisCfg := config.LoadRedisConfig()
	rdb := config.NewRedisClient(redisCfg)
	if rdb == nil {
		log.Printf("redis: %s unreachable, using in-memory sessions", redisCfg.Addr)
	} else {
		defer rdb.Close()
	}
	sessions := session.NewManager(sessionStore(rdb, redisCfg), cfg.SessionTTL, session.NewNotifier())

	publisher := queue.NewAMQPPublisher(queue.BrokerURL())
	defer publisher.Close()
	sender := queue.NewAsyncSender(publisher, 256)
	defer sender.Close()
	notifications := queue.NewNotifications(sender)

	bcfg := config.LoadBookingConfig()
	policy := docstore.RetryPolicy{MaxAttempts: bcfg.MaxAttempts, BaseDelay: bcfg.RetryBase, MaxDelay: bcfg.RetryMax}
	bookings := booking.NewService(store, users, events, policy)
	manager := catalog.NewManager(store, events, policy)

	cacheCfg := config.LoadCacheConfig()
	purger := middleware.NewCachePurger(cacheCfg, rdb)
	purge := func(ctx context.Context) {
		if err := purger.Purge(ctx); err != nil {
			log.Printf("cache: purge failed: %v", err)
		}
	}
	bookings.OnChange(func(ctx context.Context, _ booking.Change) { purge(ctx) })
	bookings.OnChange(notifications.BookingChanged)
	manager.OnChange(func(ctx context.Context, _ string) { purge(ctx) })

	sessions.Notifier.Subscribe(func(_ context.Context, ev session.LoginEvent) {
		log.Printf("auth: %s signed in (admin=%t)", ev.Record.Email, ev.Record.IsAdmin)
	})
	sessions.Notifier.Subscribe(notifications.LoggedIn)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.CorrelationID())

	guards := router.Guards{
		JWTSecret: cfg.JWTSecret,
		Sessions:  sessions,
		Users:     users,
		Limit:     middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		BookLimit: middleware.NewTokenBucket(config.LoadBookingRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(cacheCfg, rdb),
	}
	router.RegisterRoutes(e, store) // Register application routes
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, accounts, users, sessions), guards)
	router.RegisterPublic(e, handler.NewEventsHandler(manager, users), guards)
	router.RegisterBooking(e, handler.NewBookingHandler(bookings), guards)
	router.RegisterAdmin(e, handler.NewAdminEventsHandler(manager), handler.NewAdminAccountsHandler(accounts), guards)

	addr := ":" + cfg.Port // Address string with port
	log.Printf("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreDriver)

	go func() {
		// Start HTTP server
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err) // Log and exit if server fails
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// openStore connects the configured document store.  The returned *sql.DB
// is non-nil whenever MySQL is reachable so accounts can use it too.
func openStore(ctx context.Context, cfg config.Config) (docstore.Store, *sql.DB, func()) {
	var db *sql.DB
	if cfg.DBHost != "" {
		var err error
		db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("db open failed: %v", err)
		}
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err = database.RunMigrations(mctx, db)
		cancel()
		if err != nil {
			log.Fatalf("db migrate failed: %v", err)
		}
	}
	closeDB := func() {
		if db != nil {
			_ = db.Close()
		}
	}

	switch cfg.StoreDriver {
	case config.DriverMySQL:
		return docstore.NewMySQLStore(db), db, closeDB
	case config.DriverMongo:
		client, err := docstore.OpenMongo(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("mongo connect failed: %v", err)
		}
		ms := docstore.NewMongoStore(client, cfg.MongoDB)
		if err := ms.EnsureIndexes(ctx, repository.EventsCollection, repository.UsersCollection); err != nil {
			log.Fatalf("mongo indexes failed: %v", err)
		}
		return ms, db, func() {
			closeDB()
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}
	default:
		log.Printf("store: using in-memory documents, data is lost on restart")
		return docstore.NewMemoryStore(), db, closeDB
	}
}

func sessionStore(rdb *redis.Client, c config.RedisConfig) session.Store {
	if rdb == nil {
		return session.NewMemoryStore()
	}
	return session.NewRedisStore(rdb, c.SessionPrefix)
}

// promoteAdmins sets the admin flag on the user documents of the given
// emails.  Unknown emails are logged and skipped; they can sign up later
// and be promoted on the next start.
func promoteAdmins(ctx context.Context, users *repository.UserRepo, emails []string) {
	for _, email := range emails {
		u, err := users.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				log.Printf("admin: no user with email %s yet", email)
				continue
			}
			log.Printf("admin: lookup %s: %v", email, err)
			continue
		}
		if u.IsAdmin {
			continue
		}
		if err := users.SetAdmin(ctx, u.ID, true); err != nil {
			log.Printf("admin: promote %s: %v", email, err)
			continue
		}
		log.Printf("admin: promoted %s", email)
	}
}

package daemon

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ghxstship/atlvs/internal/config"
	"github.com/ghxstship/atlvs/internal/dataview"
	"github.com/ghxstship/atlvs/internal/db/dsn"
	"github.com/ghxstship/atlvs/internal/db/models"
	"github.com/ghxstship/atlvs/internal/identity"
	"github.com/ghxstship/atlvs/internal/logger"
	"github.com/ghxstship/atlvs/internal/policy"
	"github.com/ghxstship/atlvs/internal/rbac"
	"github.com/ghxstship/atlvs/internal/store"
	"github.com/ghxstship/atlvs/internal/web"
	"github.com/ghxstship/atlvs/internal/web/handler"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start starts the Daemon's web service and blocks until shutdown.
func (d *Daemon) Start() error {
	var group errgroup.Group

	group.Go(func() error {
		d.webService.WaitShutdown()
		return nil
	})

	group.Go(func() error {
		return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
	})

	return group.Wait()
}

// OpenDB opens the configured database with the matching gorm driver.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	if cfg.DB.GormEngine == "postgres" {
		dialector = gormpostgres.Open(dsn.Create(cfg))
	} else {
		dialector = gormmysql.Open(dsn.Create(cfg))
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	return db, nil
}

// Migrate brings the schema up to date.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Organization{},
		&models.Workspace{},
		&models.Membership{},
		&models.RoleAssignment{},
		&models.AccessRule{},
		&models.CompiledPolicy{},
	)
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	if err := logger.Init(cfg.Log); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logger")
	}

	db, err := OpenDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	if err = Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	seed(cfg, db)

	if err = compilePolicies(db); err != nil {
		log.Fatal().Err(err).Msg("failed to compile access policies")
	}

	perms := rbac.NewService(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	resourceStore := store.NewGormStore(db, perms, store.NewRedisFeed(redisClient))

	deps := &handler.Deps{
		Resolver: newResolver(cfg, db),
		Local:    identity.NewLocalResolver(db),
		Perms:    perms,
		Views:    dataview.NewManager(resourceStore),
		Store:    resourceStore,
	}

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, db, deps),
	}
}

// compilePolicies recompiles the declared access rules and installs the
// result. Startup fails rather than serve with stale or missing policies.
func compilePolicies(db *gorm.DB) error {
	rules, err := policy.LoadRules(db)
	if err != nil {
		return err
	}

	compiled, err := policy.Compile(rules)
	if err != nil {
		return err
	}

	result, err := policy.Install(db, compiled)
	if err != nil {
		return err
	}

	log.Info().
		Int("installed", result.Installed).
		Int("unchanged", result.Unchanged).
		Int("retired", result.Retired).
		Msg("access policies compiled")

	return nil
}

// newResolver builds the identity resolver chain: session lookups first,
// OIDC bearer tokens when enabled, the whole chain behind a short TTL
// cache so one operation never resolves the same credential twice.
func newResolver(cfg *config.Config, db *gorm.DB) identity.Resolver {
	local := identity.NewLocalResolver(db)

	var chain identity.Resolver = local

	if cfg.OIDC.Enabled {
		oidcResolver, err := identity.NewOIDCResolver(context.Background(), &cfg.OIDC, db)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize OIDC resolver")
		}

		chain = identity.NewChainResolver(local, oidcResolver)
	}

	return identity.NewCachedResolver(chain, cfg.OIDC.TokenCacheTTL)
}

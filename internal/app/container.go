package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/acme/dial-queue-engine/internal/config"
	"github.com/acme/dial-queue-engine/internal/directory"
	"github.com/acme/dial-queue-engine/internal/engine"
	"github.com/acme/dial-queue-engine/internal/infra/db"
	"github.com/acme/dial-queue-engine/internal/infra/redis"
	"github.com/acme/dial-queue-engine/internal/queue"
	"github.com/acme/dial-queue-engine/internal/repository"
	pgrepo "github.com/acme/dial-queue-engine/internal/repository/postgres"
	scyllarepo "github.com/acme/dial-queue-engine/internal/repository/scylla"
	"github.com/acme/dial-queue-engine/internal/telephony"
	"github.com/acme/dial-queue-engine/internal/telephony/mock"
	"github.com/acme/dial-queue-engine/pkg/logger"
)

// Container wires together shared infrastructure dependencies.
type Container struct {
	Config *config.Config
	Logger *logger.Logger

	Postgres *db.Postgres
	Scylla   *db.Scylla
	Redis    *redis.Client
	Kafka    *queue.Kafka

	// lazily initialised components
	components struct {
		once         sync.Once
		repositories *repositories
		dispatchers  *dispatchers
		directory    directory.CampaignDirectory
		engine       *engine.Engine
	}
}

type repositories struct {
	Lists    repository.ContactListRepository
	Contacts repository.ContactRepository
	Queue    repository.QueueRepository
	DialLog  repository.DialLogStore
}

type dispatchers struct {
	Dial    *queue.DialDispatcher
	Outcome *queue.OutcomePublisher
}

// Build constructs a container for the given configuration path.
func Build(ctx context.Context, configPath string) (*Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, err
	}

	pg, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("bootstrap postgres: %w", err)
	}

	scylla, err := db.NewScylla(cfg.Scylla)
	if err != nil {
		return nil, fmt.Errorf("bootstrap scylla: %w", err)
	}

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}

	kafka, err := queue.NewKafka(cfg.Kafka)
	if err != nil {
		return nil, fmt.Errorf("bootstrap kafka: %w", err)
	}

	return &Container{
		Config:   cfg,
		Logger:   lg,
		Postgres: pg,
		Scylla:   scylla,
		Redis:    redisClient,
		Kafka:    kafka,
	}, nil
}

func (c *Container) initComponents() {
	c.components.once.Do(func() {
		repos := &repositories{
			Lists:    pgrepo.NewContactListRepository(c.Postgres.DB()),
			Contacts: pgrepo.NewContactRepository(c.Postgres.DB()),
			Queue:    pgrepo.NewQueueRepository(c.Postgres.DB()),
			DialLog:  scyllarepo.NewDialLogStore(c.Scylla.Session()),
		}

		disp := &dispatchers{
			Dial:    queue.NewDialDispatcher(c.Kafka, c.Config.Kafka.DialTopic),
			Outcome: queue.NewOutcomePublisher(c.Kafka, c.Config.Kafka.OutcomeTopic),
		}

		dir := directory.NewRedis(c.Redis.Inner(), repos.Lists)

		// development runs simulate the dialer locally; everything else goes
		// through the dial topic to the real telephony side
		var dialer telephony.Provider = telephony.NewKafkaProvider(disp.Dial)
		if c.Config.App.Env == "development" {
			dialer = mock.NewProvider(disp.Outcome)
		}

		eng := engine.New(c.Config.Engine, engine.Deps{
			Contacts:  repos.Contacts,
			Queue:     repos.Queue,
			Directory: dir,
			Dialer:    dialer,
			Logger:    c.Logger,
		})

		c.components.repositories = repos
		c.components.dispatchers = disp
		c.components.directory = dir
		c.components.engine = eng
	})
}

// Repositories exposes initialized repositories.
func (c *Container) Repositories() *repositories {
	c.initComponents()
	return c.components.repositories
}

// Dispatchers exposes Kafka dispatchers.
func (c *Container) Dispatchers() *dispatchers {
	c.initComponents()
	return c.components.dispatchers
}

// Directory exposes the campaign directory adapter.
func (c *Container) Directory() directory.CampaignDirectory {
	c.initComponents()
	return c.components.directory
}

// Engine exposes the dial queue engine instance.
func (c *Container) Engine() *engine.Engine {
	c.initComponents()
	return c.components.engine
}

// Close releases all held resources.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if d := c.components.dispatchers; d != nil {
		if d.Dial != nil {
			if err := d.Dial.Close(); err != nil {
				errs = append(errs, fmt.Errorf("dial dispatcher close: %w", err))
			}
		}
		if d.Outcome != nil {
			if err := d.Outcome.Close(); err != nil {
				errs = append(errs, fmt.Errorf("outcome publisher close: %w", err))
			}
		}
	}
	if c.Kafka != nil {
		if err := c.Kafka.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka close: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if c.Scylla != nil {
		if err := c.Scylla.Close(); err != nil {
			errs = append(errs, fmt.Errorf("scylla close: %w", err))
		}
	}
	if c.Postgres != nil {
		if err := c.Postgres.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres close: %w", err))
		}
	}
	if c.Logger != nil {
		c.Logger.Sync()
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// EnsureTopics ensures required Kafka topics exist.
func (c *Container) EnsureTopics(ctx context.Context) error {
	topics := []string{c.Config.Kafka.DialTopic, c.Config.Kafka.OutcomeTopic}
	return c.Kafka.EnsureTopics(ctx, topics, 48, 1)
}

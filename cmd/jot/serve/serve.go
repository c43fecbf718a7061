// Package servecmder provides the serve command for running the jot API server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/paperjotco/jot/api"
	"github.com/paperjotco/jot/pkg/blob"
	"github.com/paperjotco/jot/pkg/config"
	"github.com/paperjotco/jot/pkg/dotdir"
	"github.com/paperjotco/jot/pkg/eventstream"
	kafkastream "github.com/paperjotco/jot/pkg/eventstream/kafka"
	"github.com/paperjotco/jot/pkg/eventstream/nop"
	"github.com/paperjotco/jot/pkg/logger"
	"github.com/paperjotco/jot/pkg/notebook"
	"github.com/paperjotco/jot/pkg/storage"
	"github.com/paperjotco/jot/pkg/storage/inmemory"
	"github.com/paperjotco/jot/pkg/storage/postgres"
	"github.com/paperjotco/jot/pkg/storage/sqlite"
)

type ServeCommander struct {
	listen      string
	backend     string
	sqlitePath  string
	postgresDSN string
	uploadsDir  string
	brokers     string
	topic       string
	maxUploadMB uint
	configDir   string
	debug       bool
	logger      *zap.Logger
}

const serveLongDesc string = `Run the jot API server.

Serves the note-taking HTTP API on the configured address. Storage backend,
upload directory, and event publishing are resolved from flags, JOT_*
environment variables, config.toml, and built-in defaults, in that order.

Examples:
  jot serve
  jot serve --backend memory
  jot serve --backend postgres --postgres-dsn postgres://localhost/jot
  jot serve --listen :9090 --max-upload-mb 100`

const serveShortDesc string = "Run the jot API server"

// serveFlags is the registry of flags the serve command binds into viper.
var serveFlags = config.FlagSet{
	config.FlagAPIListen: {
		Name: "listen", Shorthand: "l", ViperKey: "api.listen",
		Description: "Address for the API server to listen on",
	},
	config.FlagBackend: {
		Name: "backend", Shorthand: "b", ViperKey: "storage.backend",
		Description: "Storage backend (memory, sqlite, postgres)",
	},
	config.FlagSQLite: {
		Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path",
		Description: "Path to the SQLite database (default: .jot/jot.db)",
	},
	config.FlagPostgresDSN: {
		Name: "postgres-dsn", ViperKey: "storage.postgres_dsn",
		Description: "PostgreSQL connection string",
	},
	config.FlagUploadsDir: {
		Name: "uploads-dir", ViperKey: "uploads.dir",
		Description: "Attachment blob directory (default: .jot/uploads)",
	},
	config.FlagMaxUploadMB: {
		Name: "max-upload-mb", ViperKey: "uploads.max_size_mb",
		Description: "Attachment size ceiling in MiB",
	},
	config.FlagBrokers: {
		Name: "event-brokers", ViperKey: "events.brokers",
		Description: "Comma-separated Kafka brokers for note events (empty disables publishing)",
	},
	config.FlagTopic: {
		Name: "event-topic", ViperKey: "events.topic",
		Description: "Kafka topic for note events",
	},
}

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagBackend,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagUploadsDir,
	config.FlagMaxUploadMB,
	config.FlagBrokers,
	config.FlagTopic,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)
			cmder.resolve(v)

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagBackend, &cmder.backend)
	config.AddStringFlag(cmd, serveFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, serveFlags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, serveFlags, config.FlagUploadsDir, &cmder.uploadsDir)
	config.AddUintFlag(cmd, serveFlags, config.FlagMaxUploadMB, &cmder.maxUploadMB)
	config.AddStringFlag(cmd, serveFlags, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, serveFlags, config.FlagTopic, &cmder.topic)

	return cmd
}

// resolve pulls final values out of viper after flags, env, and config file
// have all been layered.
func (c *ServeCommander) resolve(v *viper.Viper) {
	c.listen = v.GetString("api.listen")
	c.backend = v.GetString("storage.backend")
	c.sqlitePath = v.GetString("storage.sqlite_path")
	c.postgresDSN = v.GetString("storage.postgres_dsn")
	c.uploadsDir = v.GetString("uploads.dir")
	c.maxUploadMB = v.GetUint("uploads.max_size_mb")
	c.brokers = v.GetString("events.brokers")
	c.topic = v.GetString("events.topic")
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	ctx := context.Background()

	driver, err := c.newStorageDriver(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	blobs, err := c.newBlobStore()
	if err != nil {
		return err
	}

	publisher, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	svc := notebook.NewService(driver, blobs,
		notebook.WithLogger(c.logger),
		notebook.WithPublisher(publisher),
		notebook.WithMaxUploadBytes(int64(c.maxUploadMB)<<20),
	)

	server := api.NewServer(api.Config{ListenAddr: c.listen}, svc, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

func (c *ServeCommander) newStorageDriver(ctx context.Context) (storage.Driver, error) {
	switch c.backend {
	case "memory":
		c.logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case "sqlite", "":
		path := c.sqlitePath
		if path == "" {
			var err error
			path, err = dotdir.NewManager().DatabasePath(c.configDir)
			if err != nil {
				return nil, fmt.Errorf("resolving sqlite path: %w", err)
			}
		}
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite driver: %w", err)
		}
		c.logger.Info("using SQLite storage", zap.String("path", path))
		return driver, nil

	case "postgres":
		if c.postgresDSN == "" {
			return nil, fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
		}
		driver, err := postgres.NewDriver(ctx, c.postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("creating postgres driver: %w", err)
		}
		c.logger.Info("using PostgreSQL storage")
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %q (available: memory, sqlite, postgres)", c.backend)
	}
}

func (c *ServeCommander) newBlobStore() (*blob.Store, error) {
	dir := c.uploadsDir
	if dir == "" {
		var err error
		dir, err = dotdir.NewManager().UploadsDir(c.configDir)
		if err != nil {
			return nil, fmt.Errorf("resolving uploads dir: %w", err)
		}
	}

	blobs, err := blob.NewStore(dir)
	if err != nil {
		return nil, fmt.Errorf("creating blob store: %w", err)
	}
	c.logger.Info("using upload directory", zap.String("dir", dir))
	return blobs, nil
}

func (c *ServeCommander) newPublisher() (eventstream.Publisher, error) {
	brokers := config.SplitBrokers(c.brokers)
	if len(brokers) == 0 {
		c.logger.Debug("no event brokers configured, note events disabled")
		return nop.NewPublisher(), nil
	}

	c.logger.Info("publishing note events",
		zap.Strings("brokers", brokers),
		zap.String("topic", c.topic),
	)
	return kafkastream.NewPublisher(brokers, c.topic), nil
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ballot-backend/config"
	"ballot-backend/encryption"
	"ballot-backend/events"
	"ballot-backend/logging"
	"ballot-backend/models"
	"ballot-backend/service"
	"ballot-backend/storage"
)

const adminKeyFile = "admin.key"

type app struct {
	v       *viper.Viper
	cfgFile string
	as      string
	keyFile string
	cfg     *config.Config
	log     *logging.Logging
}

// NewRootCommand builds the ballot command tree. Every invocation replays
// the journal under data_dir, runs one command and exits.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "ballot",
		Short:         "Journaled elections and ethics-board cases",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.String("data-dir", "", "directory holding the journal and snapshots")
	pf.String("driver", "", "journal driver: json, leveldb or redis")
	pf.String("log-level", "", "log level")
	pf.String("log-format", "", "log format: json or terminal")
	pf.StringVar(&a.as, "as", "", "caller address")
	pf.StringVar(&a.keyFile, "key", "", "credentials file whose address is the caller (default <data-dir>/admin.key)")

	for key, flag := range map[string]string{
		"data_dir":   "data-dir",
		"driver":     "driver",
		"log_level":  "log-level",
		"log_format": "log-format",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	rootCmd.AddCommand(
		a.initCmd(),
		a.registerVoterCmd(),
		a.verifyVoterCmd(),
		a.rolesCmd(),
		a.electionCmd(),
		a.caseCmd(),
		a.auditCmd(),
		a.exportCmd(),
		hashCmd(),
		keygenCmd(),
	)

	return rootCmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) initConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logging.Setup(cmd.ErrOrStderr(), level, cfg.LogFormat)

	return nil
}

// withService opens the configured journal, runs f and closes everything,
// flushing metrics to metrics_file when one is set.
func (a *app) withService(ctx context.Context, f func(*service.VotingService) error) error {
	if a.cfg.Driver != storage.KindRedis {
		if err := os.MkdirAll(a.cfg.DataDir, 0755); err != nil {
			return errors.Wrap(err, "failed to create data directory")
		}
	}

	driver, err := storage.Open(ctx, a.cfg.StorageOptions())
	if err != nil {
		return err
	}

	publisher, err := a.publisher()
	if err != nil {
		_ = driver.Close()
		return err
	}

	reg := prometheus.NewRegistry()
	vs, err := service.NewVotingService(ctx, driver,
		service.WithLogging(a.log),
		service.WithMetrics(service.NewMetrics(reg)),
		service.WithPublisher(publisher, a.cfg.QueueSize),
	)
	if err != nil {
		_ = publisher.Close()
		_ = driver.Close()
		return err
	}

	ferr := f(vs)

	if err := vs.Close(); err != nil && ferr == nil {
		ferr = err
	}

	if a.cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(a.cfg.MetricsFile, reg); err != nil {
			a.log.Log().Error().Err(err).Str("path", a.cfg.MetricsFile).Msg("failed to write metrics")
		}
	}

	return ferr
}

func (a *app) publisher() (events.Publisher, error) {
	if len(a.cfg.KafkaBrokers) > 0 {
		return events.NewKafkaPublisher(a.cfg.KafkaBrokers, a.cfg.KafkaTopic)
	}
	return events.NewLogPublisher(a.log), nil
}

func (a *app) adminKeyPath() string {
	return filepath.Join(a.cfg.DataDir, adminKeyFile)
}

// caller resolves --as, then --key, then the key generated by init.
func (a *app) caller() (models.Identity, error) {
	if a.as != "" {
		return models.ParseIdentity(a.as)
	}

	path := a.keyFile
	if path == "" {
		path = a.adminKeyPath()
	}

	if _, err := os.Stat(path); err != nil {
		return models.Identity{}, errors.Errorf("no caller: pass --as or --key (%s not readable)", path)
	}

	key, _, err := encryption.LoadOrGenerateKey(path)
	if err != nil {
		return models.Identity{}, err
	}
	return encryption.Address(key), nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// run is the common shape of a command: resolve the caller, open the
// service and print whatever f returns.
func (a *app) run(cmd *cobra.Command, f func(context.Context, models.Identity, *service.VotingService) (interface{}, error)) error {
	caller, err := a.caller()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)

	return a.withService(ctx, func(vs *service.VotingService) error {
		out, err := f(ctx, caller, vs)
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	})
}

// query opens the service without a caller.
func (a *app) query(cmd *cobra.Command, f func(context.Context, *service.VotingService) (interface{}, error)) error {
	ctx := commandContext(cmd)

	return a.withService(ctx, func(vs *service.VotingService) error {
		out, err := f(ctx, vs)
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

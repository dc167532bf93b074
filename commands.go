package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"philo_rooms/internal/service"
	"philo_rooms/pkg/config"
)

func newRootCmd() *cobra.Command {
	v := config.New()
	var (
		configPath string
		seedPath   string
	)

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(v, configPath)
		if err != nil {
			return nil, err
		}
		setupLogger(cfg.Log)
		return cfg, nil
	}

	serve := func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return runServer(ctx, cfg, seedPath)
	}

	root := &cobra.Command{
		Use:          "philo_rooms",
		Short:        "Discussion room backend that seats participants and rotates speaking turns.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         serve,
	}

	pfs := root.PersistentFlags()
	pfs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	pfs.StringVarP(&configPath, "config", "c", "", "path to a config file (default: ./config.yaml)")
	pfs.String("address", "", "address to listen on (env: PHILO_SERVER_ADDRESS)")
	pfs.String("store", "", "storage driver: postgres, mongo or memory (env: PHILO_STORE_DRIVER)")
	pfs.String("log-level", "", "log level (env: PHILO_LOG_LEVEL)")
	bindFlags(v, pfs, map[string]string{
		"address":   "server.address",
		"store":     "store.driver",
		"log-level": "log.level",
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	root.Flags().StringVar(&seedPath, "seed", "", "YAML file with questions and philosophers loaded at startup")
	serveCmd.Flags().StringVar(&seedPath, "seed", "", "YAML file with questions and philosophers loaded at startup")

	var seedFile string
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the stored questions and philosophers with the contents of a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Driver == config.DriverMemory {
				return fmt.Errorf("seed: the %s driver does not persist data, use serve --seed instead", cfg.Store.Driver)
			}
			return runSeed(cmd.Context(), cfg, seedFile)
		},
	}
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "seed YAML file")
	_ = seedCmd.MarkFlagRequired("file")

	root.AddCommand(serveCmd, seedCmd)
	root.CompletionOptions.HiddenDefaultCmd = true
	return root
}

// bindFlags 將命令列旗標對應到設定鍵，旗標優先於設定檔與環境變數
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if f := fs.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func runSeed(ctx context.Context, cfg *config.Config, path string) error {
	data, err := service.LoadSeedFile(path)
	if err != nil {
		return err
	}

	repos, closeStore, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := service.NewReferenceService(repos.Reference).Seed(ctx, data); err != nil {
		return err
	}
	log.Info().
		Str("module", "seed").
		Int("questions", len(data.Questions)).
		Int("philosophers", len(data.Philosophers)).
		Msg("reference data replaced")
	return nil
}

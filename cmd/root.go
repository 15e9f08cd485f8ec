package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/recruitsite/recruit/internal/config"
	"github.com/recruitsite/recruit/internal/log"
)

const defaultConfigPath = ".recruit/config.yaml"

var (
	version = "dev"
	cfgFile string
	cfg     config.Config

	closeLog func()
)

var rootCmd = &cobra.Command{
	Use:   "recruit",
	Short: "Recruiting site server and content tools",
	Long: `Serves the recruiting site and manages its content.

Page data is kept in memory and refreshed whenever content is written,
either by this process or by the content commands run against the same
database.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
	PersistentPostRun: func(*cobra.Command, []string) {
		if closeLog != nil {
			closeLog()
			closeLog = nil
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .recruit/config.yaml, then ~/.config/recruit/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "path to the site database")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
}

func bindFlags() {
	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("log.debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func setDefaults(v *viper.Viper) {
	d := config.Defaults()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.templates_dir", d.Server.TemplatesDir)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.auto_migrate", d.Database.AutoMigrate)
	v.SetDefault("database.backup_before_migrate", d.Database.BackupBeforeMigrate)
	v.SetDefault("cache.page_ttl", d.Cache.PageTTL)
	v.SetDefault("watcher.enabled", d.Watcher.Enabled)
	v.SetDefault("watcher.debounce", d.Watcher.Debounce)
	v.SetDefault("telegram.enabled", d.Telegram.Enabled)
	v.SetDefault("telegram.token_env", d.Telegram.TokenEnv)
	v.SetDefault("telegram.chat_id", d.Telegram.ChatID)
	v.SetDefault("telegram.timeout", d.Telegram.Timeout)
	v.SetDefault("telegram.api_base_url", d.Telegram.APIBaseURL)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.debug", d.Log.Debug)
}

func initConfig() {
	bindFlags()
	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("RECRUIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .recruit/config.yaml (current directory)
		// 2. ~/.config/recruit/config.yaml (user config)
		if _, err := os.Stat(defaultConfigPath); err == nil {
			viper.SetConfigFile(defaultConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "recruit"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .recruit/config.yaml
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if writeErr := config.WriteDefaultConfig(defaultConfigPath); writeErr == nil {
				viper.SetConfigFile(defaultConfigPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	cfg = config.Config{}
	_ = viper.Unmarshal(&cfg)
}

// initLogging routes log output as configured: to log.path when set,
// otherwise to stderr.
func initLogging(cmd *cobra.Command, _ []string) error {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if cfg.Log.Debug {
		level = log.LevelDebug
	}

	if cfg.Log.Path == "" {
		log.InitWriter(cmd.ErrOrStderr(), level)
		return nil
	}
	cleanup, err := log.Init(cfg.Log.Path)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	log.SetMinLevel(level)
	closeLog = cleanup
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

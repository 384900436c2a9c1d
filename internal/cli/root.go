package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aiyo-oss/aiyo/internal/config"
)

var (
	cfgFile    string
	verbose    bool
	model      string
	noColor    bool
	showRecall bool
)

var rootCmd = &cobra.Command{
	Use:   "aiyo",
	Short: "Local chat assistant with long-term fact memory",
	Long: `aiyo - a chat assistant that remembers what you tell it.

Facts you state are saved to a local vector store and recalled on later
turns. Run without a subcommand to start chatting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./aiyo.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&model, "model", "m", "", "override provider.model")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&showRecall, "show-recall", false, "print recalled facts with their distances")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

func initConfig() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("aiyo")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("AIYO")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadConfig reads aiyo.yaml (or --config), applies flag and environment
// overrides, and validates the result.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if v := viper.GetString("model"); v != "" {
		cfg.Provider.Model = v
	}
	if model != "" {
		cfg.Provider.Model = model
	}
	if cfg.Provider.APIKey == "" && cfg.Provider.Name == "anthropic" {
		cfg.Provider.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

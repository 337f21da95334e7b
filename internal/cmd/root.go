package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	configcmd "github.com/reifying/untethered/internal/cmd/config"
	queuecmd "github.com/reifying/untethered/internal/cmd/queue"
	appconfig "github.com/reifying/untethered/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "untethered",
	Short: "Session coordination core for remote coding assistants",
	Long: `Untethered coordinates upload acknowledgments, window session
claims, and a persistent priority queue of assistant sessions. The
queue and config subcommands operate on the shared state directory,
so the running client and the CLI always see the same queue.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/untethered/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	queuecmd.Register(rootCmd)
	configcmd.Register(rootCmd)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	appconfig.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(appconfig.ConfigDir())
		viper.AddConfigPath("$HOME/.config/untethered")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("UNTETHERED")
	// Replace dots with underscores for nested keys in env vars
	// e.g., UNTETHERED_UPLOAD_TIMEOUT_SECONDS for upload.timeout_seconds
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

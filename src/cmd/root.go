package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/apimgr/sfind/src/logging"
	"github.com/apimgr/sfind/src/model"
	"github.com/apimgr/sfind/src/paths"
	"github.com/apimgr/sfind/src/salesforce"
)

var (
	// Build info - set via -ldflags at build time
	ProjectName = "sfind"
	Version     = "dev"
	CommitID    = "unknown"
	BuildDate   = "unknown"

	cfgFile   string
	outFormat string
	jsonOut   bool
	noColor   bool
	timeout   int
	sandbox   bool
)

var rootCmd = &cobra.Command{
	Use:   getBinaryName() + " <id|email>",
	Short: "Find Salesforce records",
	Long: `sfind resolves a record id or email address against Salesforce and
prints the matching record together with its related account, assets,
opportunities, and contacts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFind(cmd, args[0])
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&outFormat, "output", "o", "", "output format: json, table, plain")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "shorthand for --output json")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().IntVar(&timeout, "timeout", 0, "remote call timeout in seconds")
	rootCmd.PersistentFlags().BoolVar(&sandbox, "sandbox", false, "log in against the sandbox host")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	configPath, err := paths.ResolveConfigPath(cfgFile)
	if err == nil {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")
	}

	// Defaults
	viper.SetDefault("timeout", 30)
	viper.SetDefault("output.format", "table")
	viper.SetDefault("output.color", "auto")
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("auth.api_version", salesforce.DefaultAPIVersion)
	viper.SetDefault("logging.level", "warn")

	// Credentials come from the environment first, original tool style.
	viper.BindEnv("auth.client_id", "SFDC_CLIENT_ID")
	viper.BindEnv("auth.client_secret", "SFDC_CLIENT_SECRET")
	viper.BindEnv("auth.username", "SFDC_USERNAME")
	viper.BindEnv("auth.password", "SFDC_PASSWORD")
	viper.BindEnv("auth.secret_token", "SFDC_SECRET_TOKEN")
	viper.BindEnv("auth.sandbox", "SFDC_SANDBOX")
	viper.BindEnv("auth.api_version", "SFDC_API_VERSION")

	viper.ReadInConfig()

	// The logger is built here, not at startup, so the logging.* settings
	// from the config file actually take effect.
	if err := logging.Init(logging.FromViper()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not initialize log file: %v\n", err)
	}
}

func getBinaryName() string {
	return filepath.Base(os.Args[0])
}

func getOutputFormat() string {
	if jsonOut {
		return "json"
	}
	if outFormat != "" {
		return outFormat
	}
	return viper.GetString("output.format")
}

// colorEnabled decides whether rendered output carries color: not when
// --no-color is set, color is configured off, or stdout is not a terminal.
func colorEnabled() bool {
	if noColor {
		return false
	}
	switch viper.GetString("output.color") {
	case "never", "off", "false":
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func getTimeout() time.Duration {
	secs := viper.GetInt("timeout")
	if timeout > 0 {
		secs = timeout
	}
	if secs <= 0 {
		secs = 30
	}
	return time.Duration(secs) * time.Second
}

// buildCredentials assembles the OAuth inputs from environment and config.
func buildCredentials() salesforce.Credentials {
	return salesforce.Credentials{
		ClientID:     viper.GetString("auth.client_id"),
		ClientSecret: viper.GetString("auth.client_secret"),
		Username:     viper.GetString("auth.username"),
		Password:     viper.GetString("auth.password"),
		SecretToken:  viper.GetString("auth.secret_token"),
		Sandbox:      sandbox || viper.GetBool("auth.sandbox"),
	}
}

// fieldConfig merges the user's fields/search lists into the built-in
// defaults. A malformed entry fails here, before any remote work starts.
func fieldConfig() (model.FieldConfig, error) {
	return model.NewFieldConfig(
		viper.GetStringSlice("fields"),
		viper.GetStringSlice("search"),
	)
}

// newSalesforceClient builds the query client, with session persistence
// unless caching is disabled.
func newSalesforceClient() *salesforce.Client {
	var store *salesforce.SessionStore
	if viper.GetBool("cache.enabled") {
		store = salesforce.NewSessionStore(paths.SessionFile())
	}

	salesforce.ProjectName = ProjectName
	salesforce.Version = Version

	client := salesforce.NewClient(buildCredentials(), int(getTimeout().Seconds()), store)
	if v := viper.GetString("auth.api_version"); v != "" {
		client.APIVersion = v
	}
	return client
}

package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/apimgr/sfind/src/paths"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := viper.AllSettings()
		out, err := yaml.Marshal(settings)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		value := viper.Get(key)
		if value == nil {
			return fmt.Errorf("key not found: %s", key)
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		value := args[1]

		viper.Set(key, value)

		configPath := getConfigPath()
		if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
			return err
		}

		if err := viper.WriteConfigAs(configPath); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		// viper writes world-readable; credentials may end up in here, so
		// keep it owner-only like config init does.
		if err := os.Chmod(configPath, 0600); err != nil {
			return fmt.Errorf("restrict config permissions: %w", err)
		}

		fmt.Printf("Set %s = %s\n", key, value)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := getConfigPath()

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config already exists: %s", configPath)
		}

		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		fmt.Printf("Created config file: %s\n", configPath)
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the configuration file in an editor",
	Long: `Open the configuration file in $VISUAL or $EDITOR (falling back to vi).
The file is created with defaults first when it does not exist yet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configPath := getConfigPath()
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if err := writeDefaultConfig(configPath); err != nil {
				return err
			}
		}

		editor := os.Getenv("VISUAL")
		if editor == "" {
			editor = os.Getenv("EDITOR")
		}
		if editor == "" {
			editor = "vi"
		}

		edit := exec.Command(editor, configPath)
		edit.Stdin = os.Stdin
		edit.Stdout = os.Stdout
		edit.Stderr = os.Stderr
		if err := edit.Run(); err != nil {
			return fmt.Errorf("editor %s: %w", editor, err)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
}

func getConfigPath() string {
	if cfgFile != "" {
		if path, err := paths.ResolveConfigPath(cfgFile); err == nil {
			return path
		}
	}
	return paths.ConfigFile()
}

var defaultConfig = `# sfind configuration
#
# Extra fields fetched per entity, appended after the built-in defaults.
# fields:
#   - Contact.Birthdate
#   - Account.Industry
fields: []

# Extra fields searched when resolving an email address.
# search:
#   - Contact.npe01__HomeEmail__c
search: []

# Credentials may also come from SFDC_* environment variables, which win
# over this file.
auth:
  client_id: ""
  client_secret: ""
  username: ""
  password: ""
  secret_token: ""
  sandbox: false
  api_version: "59.0"

timeout: 30

output:
  format: table
  color: auto

logging:
  level: warn

cache:
  enabled: true
`

func writeDefaultConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return err
	}
	// Credentials may end up in here, keep it owner-only.
	return os.WriteFile(configPath, []byte(defaultConfig), 0600)
}

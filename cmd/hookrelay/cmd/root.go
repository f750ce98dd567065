package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"hookrelay/internal/client"
)

const defaultConfigFileName = ".hookrelay.yaml"

var rootCmd = &cobra.Command{
	Use:   "hookrelay",
	Short: "CLI for the hookrelay webhook delivery daemon",
	Long: `hookrelay manages registered webhook services, test-fires events and
watches deliveries against a running hookrelayd daemon.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("server", "s", "", "hookrelayd base URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().String("nats", "", "NATS URL for watch (default nats://localhost:4222)")
}

// cliConfig holds CLI defaults from ~/.hookrelay.yaml. Flags and env
// override it.
type cliConfig struct {
	ServerURL string `yaml:"server_url"`
	NATSURL   string `yaml:"nats_url"`
}

func loadCLIConfig() cliConfig {
	cfg := cliConfig{
		ServerURL: "http://localhost:8080",
		NATSURL:   "nats://localhost:4222",
	}

	home, err := os.UserHomeDir()
	if err == nil {
		if data, err := os.ReadFile(filepath.Join(home, defaultConfigFileName)); err == nil {
			yaml.Unmarshal(data, &cfg)
		}
	}

	if v := os.Getenv("HOOKRELAY_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("HOOKRELAY_NATS_URL"); v != "" {
		cfg.NATSURL = v
	}
	return cfg
}

func apiClient(cmd *cobra.Command) *client.Client {
	cfg := loadCLIConfig()
	if v, _ := cmd.Flags().GetString("server"); v != "" {
		cfg.ServerURL = v
	}
	return client.New(cfg.ServerURL)
}

func natsURL(cmd *cobra.Command) string {
	cfg := loadCLIConfig()
	if v, _ := cmd.Flags().GetString("nats"); v != "" {
		cfg.NATSURL = v
	}
	return cfg.NATSURL
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

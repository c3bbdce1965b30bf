package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix = "TETHER"
)

func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tether",
		Short: "Bridge agent sessions to chat platform threads",
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().String("config", "", "Config file path (optional).")
	_ = viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))

	cmd.PersistentFlags().String("state-dir", "", "State directory (default ~/.tether).")
	_ = viper.BindPFlag("file_state_dir", cmd.PersistentFlags().Lookup("state-dir"))

	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error.")
	_ = viper.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))

	cmd.PersistentFlags().String("log-format", "", "Log format: text or json.")
	_ = viper.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))

	cmd.PersistentFlags().String("log-file", "", "Log file path (rotated); stderr when empty.")
	_ = viper.BindPFlag("logging.file", cmd.PersistentFlags().Lookup("log-file"))

	cmd.AddCommand(newPairingCmd())
	cmd.AddCommand(newThreadsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	cfgFile := strings.TrimSpace(viper.GetString("config"))
	if cfgFile == "" {
		return
	}

	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
	}
}

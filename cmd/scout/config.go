package main

import (
	"os"

	"github.com/spf13/cobra"

	"scout/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect scout configuration",
	Long:  "View the effective configuration loaded from .scout/config.json, environment and flags",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration (secrets omitted)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return printResponse(&ConfigShowResponse{Config: cfg})
	},
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variable overrides",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResponse(envReport(os.LookupEnv))
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

// envReport marks which supported variables are set. Values are never
// echoed since several carry credentials.
func envReport(lookup func(string) (string, bool)) *ConfigEnvResponse {
	resp := &ConfigEnvResponse{Variables: []EnvVarInfo{}}
	for _, name := range config.GetSupportedEnvVars() {
		_, set := lookup(name)
		resp.Variables = append(resp.Variables, EnvVarInfo{Name: name, Set: set})
	}
	return resp
}

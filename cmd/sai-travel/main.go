package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/saiset-co/sai-travel/config"
	"github.com/saiset-co/sai-travel/service"
	"github.com/saiset-co/sai-travel/types"
)

const (
	defaultConfigPath = "config.yml"
	flagConfig        = "config"
)

// Set with -ldflags "-X main.buildVersion=...".
var buildVersion = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sai-travel",
	Short: "Travel information aggregator",
	Long: `sai-travel merges country, safety, entry, climate, economic, news and
attraction data from public sources into one JSON API.

  sai-travel serve                  # start the HTTP API
  sai-travel serve -c prod.yml      # start with another config file
  sai-travel check                  # validate the config and exit
  sai-travel config get cache.ttls  # print an effective setting`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServeCmd,
	}

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration file",
		RunE:  runCheckCmd,
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration, defaults included",
	}

	configGetCmd = &cobra.Command{
		Use:   "get <path>",
		Short: "Print the value at a dotted path",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigGetCmd,
	}

	configPathsCmd = &cobra.Command{
		Use:   "paths",
		Short: "List every configuration path",
		Args:  cobra.NoArgs,
		RunE:  runConfigPathsCmd,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE:  runVersionCmd,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, flagConfig, "c", defaultConfigPath, "path to the YAML configuration")

	configCmd.AddCommand(configGetCmd, configPathsCmd)
	rootCmd.AddCommand(serveCmd, checkCmd, configCmd, versionCmd)
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	svc, err := service.NewService(cmd.Context(), configPath)
	if err != nil {
		return err
	}

	return svc.Start()
}

func runCheckCmd(cmd *cobra.Command, _ []string) error {
	cm, err := config.NewConfigurationManager(cmd.Context(), configPath)
	if err != nil {
		return err
	}

	paths, err := cm.GetAllPaths()
	if err != nil {
		return err
	}

	cfg := cm.GetConfig()
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: configuration ok (listen %s:%d, %d settings)\n",
		cfg.Name, cfg.Version,
		cm.GetValue("server.http.host", ""), cm.GetValue("server.http.port", 0),
		len(paths))
	return nil
}

func runConfigGetCmd(cmd *cobra.Command, args []string) error {
	cm, err := config.NewConfigurationManager(cmd.Context(), configPath)
	if err != nil {
		return err
	}

	value := cm.GetValue(args[0], nil)
	if value == nil {
		return types.Errorf(types.ErrConfigNotFound, "path: %s", args[0])
	}

	out, err := yaml.Marshal(value)
	if err != nil {
		return types.WrapError(err, "failed to encode value")
	}

	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func runConfigPathsCmd(cmd *cobra.Command, _ []string) error {
	cm, err := config.NewConfigurationManager(cmd.Context(), configPath)
	if err != nil {
		return err
	}

	paths, err := cm.GetAllPaths()
	if err != nil {
		return err
	}

	for _, path := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}

func runVersionCmd(cmd *cobra.Command, _ []string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "sai-travel %s\n", buildVersion)
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

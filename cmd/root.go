package cmd

import (
	"github.com/spf13/cobra"
	configx "github.com/tanpawarit/Chative-Support-Router/pkg/config"
	logx "github.com/tanpawarit/Chative-Support-Router/pkg/logger"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "support-router",
	Short:         "Customer support router that delegates to data and support specialists",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			configx.SetEnvFile(envFile)
		}
		logCfg, err := configx.New[logx.Config]("LOG")
		if err != nil {
			return err
		}
		logx.Init(*logCfg)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to .env file (default ./.env or $"+configx.EnvFileVar+")")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(initDBCmd)
}

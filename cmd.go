package main

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/muxi-Infra/certportal/config"
)

// RootOptions 所有子命令共用的参数
type RootOptions struct {
	ConfigPath string
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:          "certportal",
		Short:        "Certificate issuance and verification portal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "./config/config.yaml", "config file path (optional)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	return cmd
}

func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func NewImportCommand(opts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk issue certificates from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.GetConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			app, cleanup, err := InitApp(conf)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := app.Import(cmd.Context(), file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "created %d certificate(s)\n", len(res.Created))
			if len(res.Duplicates) > 0 {
				fmt.Fprintf(out, "skipped %d duplicate(s): %s\n", len(res.Duplicates), strings.Join(res.Duplicates, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with a certificates list")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runServe(cmd *cobra.Command, opts *RootOptions) error {
	conf, err := config.GetConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if !strings.EqualFold(conf.Log.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	app, cleanup, err := InitApp(conf)
	if err != nil {
		return err
	}
	defer cleanup()
	return app.Serve(cmd.Context())
}

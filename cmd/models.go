package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/council/config"
	"github.com/mohammad-safakhou/council/internal/provider"
)

func modelsCMD() *cobra.Command {
	var cfgPath string
	var models = &cobra.Command{
		Use:   "models",
		Short: "List models available at the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			gateway := provider.NewGatewayClient(cfg.Gateway)

			list, err := gateway.ListModels(context.Background())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODEL\tPROVIDER")
			for _, m := range list {
				fmt.Fprintf(tw, "%s\t%s\n", m.ID, m.Provider)
			}
			return tw.Flush()
		},
	}
	models.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return models
}

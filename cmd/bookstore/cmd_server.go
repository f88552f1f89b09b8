package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/bookstore/app/store/memory"
	"github.com/shashiranjanraj/bookstore/config"
	"github.com/shashiranjanraj/bookstore/internal/server"
)

// bookstore serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			config.Set("APP_PORT", port)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		flush := setupLogging(ctx)
		defer flush()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}

		app, err := buildApplication(ctx, st, connectRedis(ctx))
		if err != nil {
			_ = st.Close()
			return err
		}
		defer app.Close()

		return server.Start(ctx, app.kernel.Handler(), server.Options{
			Addr:     ":" + config.AppPort(),
			GRPCPort: config.GRPCPort(),
			OnDrain:  app.health.MarkNotServing,
		})
	},
}

// bookstore route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered named routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}

		app, err := buildApplication(cmd.Context(), memory.New(), nil)
		if err != nil {
			return err
		}
		defer app.Close()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range app.kernel.Routes() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "port to listen on (overrides APP_PORT)")
}

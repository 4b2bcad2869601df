package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/storage"
)

// migrateCmd applies pending schema migrations and exits
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		repo, err := storage.NewRepository(ctx, cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer repo.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date\n", cfg.DatabasePath)
		return nil
	},
}

// channelsCmd lists subscribed channels without starting the bot
var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List channels with patch record subscriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		repo, err := storage.NewRepository(ctx, cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer repo.Close()

		summaries, err := repo.SubscribedChannels(ctx)
		if err != nil {
			return fmt.Errorf("failed to list channels: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CHANNEL\tTYPES\tBOSSES")
		for _, s := range summaries {
			types := make([]string, len(s.Types))
			for i, t := range s.Types {
				types[i] = t.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%d\n", s.ChannelID, strings.Join(types, ","), s.Bosses)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Fprintln(os.Stderr, "No subscribed channels")
		}
		return nil
	},
}

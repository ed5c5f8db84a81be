package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dyng/subfeed/database"
	"github.com/dyng/subfeed/service"
	"github.com/dyng/subfeed/types"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Execute runs the subfeed CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "subfeed",
		Short:         "Subscription feed service",
		Long:          "subfeed builds newest-first pages of items from followed channels and hands back resume cursors.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newPullCmd())
	rootCmd.AddCommand(newSeedCmd())
	return rootCmd
}

// setup loads configuration and installs the logger.
func setup() (*types.Config, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := initLogger(config); err != nil {
		return nil, err
	}
	return config, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the feed API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := setup()
			if err != nil {
				return err
			}
			return NewApplication(config).Run(cmd.Context())
		},
	}
}

func newPullCmd() *cobra.Command {
	var weeksAgo int
	var subs []string

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Build one feed page and print it as JSON",
		Long:  "Build one feed page for the given subscriptions. Each --sub is channel_id:resume_index; the index defaults to 0.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			subscriptions, err := parseSubscriptions(subs)
			if err != nil {
				return err
			}

			config, err := setup()
			if err != nil {
				return err
			}

			db := database.NewNeo4jDb(config)
			if err := db.Connect(); err != nil {
				return err
			}
			defer db.Close()

			svc := service.NewService(config, database.NewNeo4jStore(db))
			feed, err := svc.GetFeed(cmd.Context(), weeksAgo, subscriptions)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(subscriptionsResponse{
				Items:         feed.ItemIDs(),
				Subscriptions: feed.Subscriptions,
			})
		},
	}

	cmd.Flags().IntVar(&weeksAgo, "weeks", 1, "window unit in weeks; the window spans twice this")
	cmd.Flags().StringArrayVar(&subs, "sub", nil, "subscription as channel_id[:resume_index], repeatable")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load channels and items from a YAML fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			fixture, err := database.ReadFixture(f)
			if err != nil {
				return err
			}

			config, err := setup()
			if err != nil {
				return err
			}

			db := database.NewNeo4jDb(config)
			if err := db.Connect(); err != nil {
				return err
			}
			defer db.Close()

			store := database.NewNeo4jStore(db)
			ctx := cmd.Context()
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
			n, err := database.LoadFixture(ctx, store, fixture)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d items\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "fixture.yaml", "fixture file")
	return cmd
}

func parseSubscriptions(raw []string) ([]types.Subscription, error) {
	subs := make([]types.Subscription, 0, len(raw))
	for _, s := range raw {
		channelID, index, found := strings.Cut(s, ":")
		sub := types.Subscription{ChannelID: channelID}
		if found {
			n, err := strconv.Atoi(index)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid resume index in %q", s)
			}
			sub.ResumeIndex = n
		}
		if sub.ChannelID == "" {
			return nil, fmt.Errorf("empty channel id in %q", s)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

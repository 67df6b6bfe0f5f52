// Command redditstream watches subreddits and prints new posts and comments
// to stdout as they appear.
//
// Credentials come from the environment (optionally loaded from a .env file):
//
//	REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET, REDDIT_USER_AGENT,
//	REDDIT_USERNAME, REDDIT_PASSWORD
//
// Usage:
//
//	redditstream --subreddits golang,programming
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jamesprial/go-reddit-stream"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var (
	flagSubreddits []string
	flagEnvFile    string
	flagLimit      int
	flagVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "redditstream",
	Short:         "Stream new Reddit posts and comments to stdout",
	Long:          "redditstream authenticates with Reddit, subscribes to a set of subreddits, and prints every new post and comment as it appears, reconnecting automatically on transient failures.",
	RunE:          watchAction,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("redditstream %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.Flags().StringSliceVarP(&flagSubreddits, "subreddits", "s",
		[]string{"smallbusiness", "learnpython"}, "subreddit names to watch (without the r/ prefix)")
	rootCmd.Flags().StringVar(&flagEnvFile, "env-file", "", "path to a .env file with Reddit credentials")
	rootCmd.Flags().IntVar(&flagLimit, "limit", 0, "items per listing request (default 100, max 100)")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func watchAction(cmd *cobra.Command, _ []string) error {
	if flagEnvFile != "" {
		if err := godotenv.Load(flagEnvFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else {
		// A .env alongside the binary is optional.
		_ = godotenv.Load()
	}

	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	creds := &redditstream.Credentials{
		ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
		ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
		UserAgent:    os.Getenv("REDDIT_USER_AGENT"),
		Username:     os.Getenv("REDDIT_USERNAME"),
		Password:     os.Getenv("REDDIT_PASSWORD"),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := redditstream.Authenticate(ctx, creds, &redditstream.Config{Logger: logger})
	if err != nil {
		var configErr *redditstream.ConfigError
		if errors.As(err, &configErr) {
			logger.Error("configuration error", "error", err)
			return err
		}
		logger.Error("authentication failed", "error", err)
		return err
	}

	stream := session.Stream(flagSubreddits, &redditstream.StreamOptions{FetchLimit: flagLimit})

	for {
		item, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("shut down by user")
				return nil
			}
			return err
		}
		printItem(item)
	}
}

func printItem(item *redditstream.Item) {
	fmt.Println(strings.Repeat("-", 40))
	switch item.Kind {
	case redditstream.KindPost:
		fmt.Printf("New Post in r/%s:\n", item.Subreddit)
		fmt.Printf("  Title: %s\n", item.Title)
	case redditstream.KindComment:
		fmt.Printf("New Comment in r/%s:\n", item.Subreddit)
		fmt.Printf("  Comment: %s\n", item.Preview(0))
	}
	fmt.Printf("  URL: %s\n", item.URL())
}

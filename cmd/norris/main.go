package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/loopwork-ai/norris/internal"
	"github.com/loopwork-ai/norris/internal/config"
	"github.com/loopwork-ai/norris/internal/session"
	"github.com/loopwork-ai/norris/joke"
	"github.com/loopwork-ai/norris/mcp"
)

// shutdownTimeout bounds how long in-flight requests may run after a signal
const shutdownTimeout = 10 * time.Second

var errMissingRedisURL = errors.Newf("%s environment variable is not set", config.EnvRedisURL)

var rootCmd = &cobra.Command{
	Use:   "norris",
	Short: "An MCP server for Chuck Norris jokes",
	Long: `norris is an MCP server exposing tools backed by the api.chucknorris.io joke service:

- get-random-joke         a random joke
- get-joke-from-category  a random joke from a category
- get-categories          the list of categories
- search-jokes            jokes containing a piece of text

By default it serves MCP over HTTP with server-sent events on the port named by
$PORT (3000 if unset). Sessions are tracked in Redis, so $REDIS_URL must be set.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The session store is a hard precondition; check it before anything else
		if os.Getenv(config.EnvRedisURL) == "" {
			return errMissingRedisURL
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		logger := newLogger()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		redisURL, isSecret, err := internal.ResolveSecretReference(ctx, cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "error resolving Redis URL")
		}
		if isSecret {
			logger.Info("resolved Redis URL from 1Password")
		}

		rdb, err := session.Dial(ctx, redisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()

		server, err := newServer(cfg, logger)
		if err != nil {
			return err
		}

		broker := session.NewRedisBroker(rdb, cfg.SessionPrefix, cfg.SessionTTL)
		transport := mcp.NewHTTPTransport(server, broker, logger, cfg.KeepAlive)

		httpServer := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           transport.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			// Event streams end when the signal context is canceled
			BaseContext: func(net.Listener) context.Context { return ctx },
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on port %d\n", cfg.Port)
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "error serving HTTP")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve MCP over stdin and stdout",
	Long: `Serve MCP as newline-delimited JSON-RPC on stdin and stdout, for clients that
launch the server as a subprocess. No session store is used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		logger := newLogger()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		server, err := newServer(cfg, logger)
		if err != nil {
			return err
		}

		transport := mcp.NewStdioTransport(server, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
		if err := transport.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

var (
	configPath string
	verbose    bool
	port       int
	timeout    time.Duration
	jokesURL   string

	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging to stderr")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Timeout for upstream requests (0 for the HTTP client default)")
	rootCmd.PersistentFlags().StringVar(&jokesURL, "jokes-url", "", "Base URL of the joke API (default "+joke.DefaultBaseURL+")")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides $PORT)")

	rootCmd.AddCommand(stdioCmd)
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built at: %s)", version, commit, date)
}

func newLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// loadConfig layers the config file, the environment, and flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if jokesURL != "" {
		cfg.JokesAPIURL = jokesURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "norris/" + version
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newServer(cfg *config.Config, logger *slog.Logger) (*mcp.Server, error) {
	// Requests are never retried; the client is used for its logging and
	// transport setup.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.HTTPClient.Transport = internal.NewHeaderTransport(retryClient.HTTPClient.Transport, http.Header{
		"User-Agent": {cfg.UserAgent},
	})
	retryClient.Logger = logger

	client, err := joke.NewClient(
		joke.WithBaseURL(cfg.JokesAPIURL),
		joke.WithHTTPClient(retryClient.StandardClient()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error creating joke client")
	}

	server, err := mcp.NewServer(
		mcp.WithJokeClient(client),
		mcp.WithLogger(logger),
		mcp.WithServerInfo("norris", version),
		mcp.WithInstructions(cfg.Instructions),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error creating server")
	}
	return server, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

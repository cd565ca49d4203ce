package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/fragship/internal/adapters/journal"
	"github.com/bft-labs/fragship/internal/cliconfig"
	"github.com/bft-labs/fragship/pkg/fragship"
	"github.com/bft-labs/fragship/pkg/log"
)

const helpDescription = `
Send files and text messages over UDP, one acknowledged fragment at a time.

Highlights:
  - Every fragment carries a checksum digit; damaged fragments are rejected and resent.
  - Bounded waits and retries on both ends, so a dead peer never hangs a transfer.
  - Received files never overwrite existing ones: name(1).ext, name(2).ext, ...
  - Configure via file ($HOME/.fragship/config.toml), FRAGSHIP_* env, or flags.
`

var longHelp = strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  fragship serve --port 9090 --output-dir ./downloads
  fragship send file ./photo.jpg --host 10.0.0.7 --fragment 1400
  fragship send text "hello there" --corrupt-fragment 1
  fragship status -v
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries the configuration shared by all commands.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	verbose bool

	// base is cfg before the file and environment were applied; the config
	// watcher rebuilds from it.
	base    cliconfig.Config
	changed map[string]bool
	logger  *log.ZerologAdapter
}

// load applies file and environment configuration under the flags the user
// set, validates the result and creates the logger.
func (c *cli) load(cmd *cobra.Command) error {
	c.changed = map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { c.changed[f.Name] = true })
	c.base = c.cfg

	if path := c.configPath(); path != "" && cliconfig.FileExists(path) {
		fc, err := cliconfig.LoadFileConfig(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, c.changed); err != nil {
			return err
		}
	}

	// FRAGSHIP_* override the file but not flags (checked via changed map)
	if err := cliconfig.ApplyEnvConfig(&c.cfg, c.changed); err != nil {
		return err
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	logger, err := cliconfig.NewLogger(os.Stderr, c.cfg.LogLevel)
	if err != nil {
		return err
	}
	c.logger = logger
	zl := logger.Logger()
	zl.Debug().Interface("config", c.cfg).Msg("configuration")
	return nil
}

func (c *cli) configPath() string {
	if c.cfgPath != "" {
		return c.cfgPath
	}
	return cliconfig.DefaultConfigPath()
}

// options builds the library options common to sending and serving.
func (c *cli) options() ([]fragship.Option, func(), error) {
	settings, err := c.cfg.Engine()
	if err != nil {
		return nil, nil, err
	}
	opts := []fragship.Option{
		fragship.WithLogger(c.logger),
		fragship.WithSettings(settings),
		fragship.WithReportDir(c.cfg.StateDir),
	}

	closeJournal := func() {}
	if c.cfg.JournalKeep > 0 {
		j, err := journal.Open(c.cfg.StateDir, time.Now(), c.cfg.JournalKeep, c.logger)
		if err != nil {
			c.logger.Warn("transfer journal disabled", log.Err(err))
		} else {
			opts = append(opts, fragship.WithJournal(j))
			closeJournal = func() { _ = j.Close() }
		}
	}
	return opts, closeJournal, nil
}

func (c *cli) print(r fragship.Report) {
	fmt.Fprintln(os.Stdout, renderReport(r, c.verbose))
}

func main() {
	c := &cli{cfg: cliconfig.DefaultConfig()}

	root := &cobra.Command{
		Use:           "fragship",
		Short:         "Reliable file and message delivery over UDP",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.fragship/config.toml)")
	pf.StringVar(&c.cfg.Host, "host", c.cfg.Host, "receiver host (send) or bind address (serve)")
	pf.IntVar(&c.cfg.Port, "port", c.cfg.Port, fmt.Sprintf("UDP port [%d, %d]", cliconfig.MinPort, cliconfig.MaxPort))
	pf.IntVar(&c.cfg.Fragment, "fragment", c.cfg.Fragment, "payload bytes per fragment, header excluded (clamped to [1, 1466])")
	pf.StringVar(&c.cfg.StateDir, "state-dir", c.cfg.StateDir, "directory for status.json and transfer journals (default: $HOME/.fragship)")
	pf.IntVar(&c.cfg.JournalKeep, "journal-keep", c.cfg.JournalKeep, "transfer journals to keep (0 disables the journal)")
	pf.DurationVar(&c.cfg.HandshakeTimeout, "handshake-timeout", c.cfg.HandshakeTimeout, "sender wait for the handshake reply")
	pf.DurationVar(&c.cfg.ListenTimeout, "listen-timeout", c.cfg.ListenTimeout, "receiver wait for a handshake")
	pf.DurationVar(&c.cfg.AckTimeout, "ack-timeout", c.cfg.AckTimeout, "sender wait for a fragment reply before resending")
	pf.DurationVar(&c.cfg.InactivityTimeout, "inactivity-timeout", c.cfg.InactivityTimeout, "receiver silence that ends a transfer")
	pf.DurationVar(&c.cfg.CompletionTimeout, "completion-timeout", c.cfg.CompletionTimeout, "sender wait for the final acknowledgment")
	pf.IntVar(&c.cfg.MaxRetries, "max-retries", c.cfg.MaxRetries, "resends of one fragment before giving up")
	pf.BoolVar(&c.cfg.CompleteOnCount, "complete-on-count", c.cfg.CompleteOnCount, "send the final ACK once the declared count arrived")
	pf.StringVar(&c.cfg.Polynomial, "polynomial", c.cfg.Polynomial, "checksum generator bits (both ends must match)")
	pf.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "print the per-fragment status log with reports")

	root.AddCommand(newServeCmd(c), newSendCmd(c), newStatusCmd(c))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fragship: %v\n", err)
		os.Exit(1)
	}
}

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive files and messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}
			opts, closeJournal, err := c.options()
			if err != nil {
				return err
			}
			defer closeJournal()

			opts = append(opts,
				fragship.WithConsole(os.Stdout),
				fragship.WithOnReport(c.print),
				fragship.WithOnce(c.cfg.Once))

			srv, err := fragship.NewServer(c.cfg.Address(), c.cfg.OutputDir, opts...)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			defer srv.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if c.cfg.WatchConfig {
				c.watchConfig(ctx, srv)
			}

			c.logger.Info("listening",
				log.Stringer("addr", srv.Addr()),
				log.String("output_dir", c.cfg.OutputDir))

			if c.cfg.Once {
				sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				err := srv.Run(sigCtx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			if err := srv.Start(ctx); err != nil {
				return fmt.Errorf("start server: %w", err)
			}

			// Poll for a crash of the serving loop
			doneCh := make(chan struct{})
			go func() {
				ticker := time.NewTicker(100 * time.Millisecond)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if srv.Status() == fragship.StateCrashed {
							close(doneCh)
							return
						}
					}
				}
			}()

			select {
			case <-sigCh:
				c.logger.Info("received signal, stopping...")
			case <-doneCh:
				return errors.New("server crashed")
			}

			if err := srv.Stop(); err != nil {
				return fmt.Errorf("stop server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&c.cfg.OutputDir, "output-dir", c.cfg.OutputDir, "directory for received files")
	cmd.Flags().BoolVar(&c.cfg.Once, "once", c.cfg.Once, "serve a single handshake and exit")
	cmd.Flags().BoolVar(&c.cfg.WatchConfig, "watch-config", c.cfg.WatchConfig, "reload timeouts from the config file when it changes")
	return cmd
}

// watchConfig applies config file edits to the next handshake.
func (c *cli) watchConfig(ctx context.Context, srv *fragship.Server) {
	path := c.configPath()
	if path == "" || !cliconfig.FileExists(path) {
		c.logger.Warn("config watcher disabled: no config file", log.String("path", path))
		return
	}

	w := cliconfig.NewWatcher(path, c.base, c.changed, c.logger, func(cfg cliconfig.Config) {
		settings, err := cfg.Engine()
		if err != nil {
			c.logger.Warn("ignoring config change", log.Err(err))
			return
		}
		if err := srv.UpdateSettings(settings); err != nil {
			c.logger.Warn("ignoring config change", log.Err(err))
		}
	})
	go func() {
		if err := w.Run(ctx); err != nil {
			c.logger.Error("config watcher stopped", log.Err(err))
		}
	}()
}

func newSendCmd(c *cli) *cobra.Command {
	send := &cobra.Command{
		Use:   "send",
		Short: "Send a file or a text message",
	}
	send.PersistentFlags().IntVar(&c.cfg.CorruptFragment, "corrupt-fragment", 0,
		"damage the n-th data datagram once to exercise retransmission")

	// run performs one transfer with signal-aware context and prints the report.
	run := func(cmd *cobra.Command, transfer func(ctx context.Context, addr string, opts []fragship.Option) (fragship.Report, error)) error {
		if err := c.load(cmd); err != nil {
			return err
		}
		opts, closeJournal, err := c.options()
		if err != nil {
			return err
		}
		defer closeJournal()
		if c.cfg.CorruptFragment > 0 {
			opts = append(opts, fragship.WithCorruptFragment(c.cfg.CorruptFragment))
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		report, err := transfer(ctx, c.cfg.Address(), opts)
		if report.Role != "" {
			c.print(report)
		}
		return err
	}

	file := &cobra.Command{
		Use:   "file <path>",
		Short: "Send a file; the receiver stores it under its base name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, addr string, opts []fragship.Option) (fragship.Report, error) {
				return fragship.SendFile(ctx, addr, args[0], c.cfg.Fragment, opts...)
			})
		},
	}

	text := &cobra.Command{
		Use:   "text <message>...",
		Short: "Send a text message; the receiver prints it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := strings.Join(args, " ")
			return run(cmd, func(ctx context.Context, addr string, opts []fragship.Option) (fragship.Report, error) {
				return fragship.SendText(ctx, addr, msg, c.cfg.Fragment, opts...)
			})
		},
	}

	send.AddCommand(file, text)
	return send
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the report of the last transfer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}
			report, ok, err := fragship.LoadReport(c.cfg.StateDir)
			if err != nil {
				return fmt.Errorf("load report: %w", err)
			}
			if !ok {
				fmt.Fprintln(os.Stdout, "no transfer recorded yet")
				return nil
			}
			c.print(report)
			return nil
		},
	}
}

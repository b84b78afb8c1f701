// ABOUTME: Entry point for the mahub command line client
// ABOUTME: Defines the root command, global flags and logging setup
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/mahub-go/pkg/mahub"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	host        string
	port        int
	timeout     time.Duration
	logFile     string
	metricsAddr string
	verbose     bool
}

func main() {
	opts := &globalOptions{}
	var logCloser io.Closer

	rootCmd := &cobra.Command{
		Use:   "mahub",
		Short: "Command line client for a Music Assistant hub",
		Long: `mahub talks to a Music Assistant hub over its WebSocket API.

It can list and control players, browse queues, search the library,
build stream URLs and run a built-in player that plays hub streams
on this machine.

The hub is found via mDNS unless --host (or MAHUB_HOST) is given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			toStdout := cmd.Annotations["logs"] == "stdout"
			if f := cmd.Flags().Lookup("tui"); f != nil && f.Value.String() == "true" {
				toStdout = false
			}
			c, err := setupLogging(opts, toStdout)
			logCloser = c
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCloser != nil {
				logCloser.Close()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.host, "host", os.Getenv("MAHUB_HOST"), "Hub host (default: discover via mDNS)")
	flags.IntVar(&opts.port, "port", envInt("MAHUB_PORT", mahub.DefaultPort), "Hub WebSocket port")
	flags.DurationVar(&opts.timeout, "timeout", mahub.DefaultTimeout, "Per-command response timeout")
	flags.StringVar(&opts.logFile, "log-file", "mahub.log", "Log file path (empty disables file logging)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /healthz, /state and /metrics on this address")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Also log to stderr")

	rootCmd.AddCommand(
		infoCmd(opts),
		discoverCmd(),
		playersCmd(opts),
		controlCmd(opts, "play", "Start or resume playback"),
		controlCmd(opts, "pause", "Pause playback"),
		controlCmd(opts, "stop", "Stop playback"),
		controlCmd(opts, "next", "Skip to the next track"),
		controlCmd(opts, "previous", "Go back to the previous track"),
		volumeCmd(opts),
		searchCmd(opts),
		queueCmd(opts),
		streamURLCmd(opts),
		monitorCmd(opts),
		playerCmd(opts),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// setupLogging routes the standard logger to the log file, and to stdout
// for long-running headless commands or stderr with --verbose
func setupLogging(opts *globalOptions, toStdout bool) (io.Closer, error) {
	var writers []io.Writer
	var closer io.Closer

	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}
	if toStdout {
		writers = append(writers, os.Stdout)
	} else if opts.verbose {
		writers = append(writers, os.Stderr)
	}

	if len(writers) == 0 {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(io.MultiWriter(writers...))
	}
	return closer, nil
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

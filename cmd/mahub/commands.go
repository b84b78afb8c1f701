// ABOUTME: One-shot hub commands
// ABOUTME: Info, discovery, players, transport control, volume, search and queues
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/mahub-go/internal/discovery"
	"github.com/Resonate-Protocol/mahub-go/pkg/mahub"
)

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

func infoCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show hub server information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHub(opts, func(ctx context.Context, c *mahub.Client) error {
				info := c.ServerInfo()
				if info == nil {
					return mahub.ErrNotConnected
				}
				base, _ := c.BaseURL()

				w := newTable()
				fmt.Fprintf(w, "Server ID:\t%s\n", info.ServerID)
				fmt.Fprintf(w, "Version:\t%s\n", info.ServerVersion)
				fmt.Fprintf(w, "Schema:\t%d\n", info.SchemaVersion)
				fmt.Fprintf(w, "Base URL:\t%s\n", base)
				fmt.Fprintf(w, "Resonate:\t%t\n", c.SupportsResonate())
				return w.Flush()
			})
		},
	}
}

func discoverCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Browse the local network for hubs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, wait)
			defer cancel()

			m := discovery.NewManager(discovery.Config{})
			m.Browse()
			defer m.Stop()

			w := newTable()
			fmt.Fprintln(w, "NAME\tADDRESS\tSERVER ID\tVERSION\tBASE URL")
			found := 0
			for {
				select {
				case hub := <-m.Hubs():
					found++
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", hub.Name, hub.Addr(), hub.ServerID, hub.ServerVersion, hub.BaseURL)
				case <-ctx.Done():
					if found == 0 {
						return fmt.Errorf("no hub found via mDNS (%s)", discovery.ServiceType)
					}
					return w.Flush()
				}
			}
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 2*discovery.DefaultTimeout, "How long to browse")
	return cmd
}

func playersCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "players",
		Short: "List players",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHub(opts, func(ctx context.Context, c *mahub.Client) error {
				players, err := c.GetPlayers(ctx)
				if err != nil {
					return err
				}

				w := newTable()
				fmt.Fprintln(w, "ID\tNAME\tSTATE\tVOLUME\tNOW PLAYING")
				for _, p := range players {
					state := p.State
					if !p.Available {
						state = "unavailable"
					}
					nowPlaying := ""
					if p.CurrentItem != nil {
						nowPlaying = p.CurrentItem.Name
						if artists := p.CurrentItem.ArtistNames(); artists != "" {
							nowPlaying = artists + " - " + nowPlaying
						}
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%s\n", p.PlayerID, p.Name, state, p.VolumeLevel, nowPlaying)
				}
				return w.Flush()
			})
		},
	}
}

// controlCmd builds a transport command taking a player id
func controlCmd(opts *globalOptions, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <player-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHub(opts, func(ctx context.Context, c *mahub.Client) error {
				return runControl(ctx, c, name, args[0])
			})
		},
	}
}

func runControl(ctx context.Context, c *mahub.Client, name, playerID string) error {
	switch name {
	case "play":
		return c.Play(ctx, playerID)
	case "pause":
		return c.Pause(ctx, playerID)
	case "stop":
		return c.Stop(ctx, playerID)
	case "next":
		return c.Next(ctx, playerID)
	case "previous":
		return c.Previous(ctx, playerID)
	}
	return fmt.Errorf("unknown control command %q", name)
}

func volumeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "volume <player-id> <level>",
		Short: "Set a player's volume (0-100)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseVolume(args[1])
			if err != nil {
				return err
			}
			return withHub(opts, func(ctx context.Context, c *mahub.Client) error {
				return c.SetVolume(ctx, args[0], level)
			})
		},
	}
}

func parseVolume(s string) (float64, error) {
	level, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid volume %q: %w", s, err)
	}
	if level < 0 || level > 100 {
		return 0, fmt.Errorf("volume %v out of range 0-100", level)
	}
	return level, nil
}

func searchCmd(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the music library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHub(opts, func(ctx context.Context, c *mahub.Client) error {
				results, err := c.Search(ctx, args[0], limit)
				if err != nil {
					return err
				}

				w := newTable()
				fmt.Fprintln(w, "TYPE\tNAME\tARTISTS\tURI")
				groups := []struct {
					kind  string
					items []mahub.MediaItem
				}{
					{"artist", results.Artists},
					{"album", results.Albums},
					{"track", results.Tracks},
					{"playlist", results.Playlists},
					{"radio", results.Radio},
				}
				for _, g := range groups {
					for _, item := range g.items {
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", g.kind, item.Name, item.ArtistNames(), item.URI)
					}
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", mahub.DefaultSearchLimit, "Maximum results per media type")
	return cmd
}

func queueCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and control player queues",
	}

	show := &cobra.Command{
		Use:   "show <queue-id>",
		Short: "Show queue state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHub(opts, func(ctx context.Context, c *mahub.Client) error {
				q, err := c.GetQueue(ctx, args[0])
				if err != nil {
					return err
				}
				if q == nil {
					return fmt.Errorf("queue %s not found", args[0])
				}

				w := newTable()
				fmt.Fprintf(w, "Queue:\t%s (%s)\n", q.DisplayName, q.QueueID)
				fmt.Fprintf(w, "State:\t%s\n", q.State)
				fmt.Fprintf(w, "Items:\t%d\n", q.Items)
				fmt.Fprintf(w, "Shuffle:\t%t\n", q.ShuffleEnabled)
				fmt.Fprintf(w, "Repeat:\t%s\n", q.RepeatMode)
				if q.CurrentItem != nil {
					fmt.Fprintf(w, "Current:\t%s (%.0fs/%.0fs)\n", q.CurrentItem.Title(), q.ElapsedTime, q.CurrentItem.Duration)
				}
				if q.NextItem != nil {
					fmt.Fprintf(w, "Next:\t%s\n", q.NextItem.Title())
				}
				return w.Flush()
			})
		},
	}

	var limit, offset int
	items := &cobra.Command{
		Use:   "items <queue-id>",
		Short: "List queue items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHub(opts, func(ctx context.Context, c *mahub.Client) error {
				list, err := c.GetQueueItems(ctx, args[0], limit, offset)
				if err != nil {
					return err
				}

				w := newTable()
				fmt.Fprintln(w, "#\tID\tTITLE\tDURATION")
				for i, item := range list {
					fmt.Fprintf(w, "%d\t%s\t%s\t%.0fs\n", offset+i, item.QueueItemID, item.Title(), item.Duration)
				}
				return w.Flush()
			})
		},
	}
	items.Flags().IntVar(&limit, "limit", mahub.DefaultQueueItemsLimit, "Maximum items to list")
	items.Flags().IntVar(&offset, "offset", 0, "Index of the first item")

	var option string
	var radio bool
	play := &cobra.Command{
		Use:   "play <queue-id> <media-uri>",
		Short: "Play a media item on a queue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHub(opts, func(ctx context.Context, c *mahub.Client) error {
				_, err := c.PlayMedia(ctx, args[0], args[1], mahub.PlayMediaOptions{Option: option, RadioMode: radio})
				return err
			})
		},
	}
	play.Flags().StringVar(&option, "option", "play", "Enqueue mode: play, replace, next, replace_next or add")
	play.Flags().BoolVar(&radio, "radio", false, "Start radio mode from the item")

	clearCmd := &cobra.Command{
		Use:   "clear <queue-id>",
		Short: "Remove all items from a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHub(opts, func(ctx context.Context, c *mahub.Client) error {
				return c.ClearQueue(ctx, args[0])
			})
		},
	}

	shuffle := &cobra.Command{
		Use:   "shuffle <queue-id> <on|off>",
		Short: "Enable or disable shuffle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := parseOnOff(args[1])
			if err != nil {
				return err
			}
			return withHub(opts, func(ctx context.Context, c *mahub.Client) error {
				return c.Shuffle(ctx, args[0], enabled)
			})
		},
	}

	repeat := &cobra.Command{
		Use:   "repeat <queue-id> <off|one|all>",
		Short: "Set the repeat mode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHub(opts, func(ctx context.Context, c *mahub.Client) error {
				return c.SetRepeat(ctx, args[0], args[1])
			})
		},
	}

	seek := &cobra.Command{
		Use:   "seek <queue-id> <seconds>",
		Short: "Seek within the current item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.ParseFloat(args[1], 64)
			if err != nil || position < 0 {
				return fmt.Errorf("invalid position %q", args[1])
			}
			return withHub(opts, func(ctx context.Context, c *mahub.Client) error {
				return c.SeekQueue(ctx, args[0], position)
			})
		},
	}

	cmd.AddCommand(show, items, play, clearCmd, shuffle, repeat, seek)
	return cmd
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

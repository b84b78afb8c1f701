// ABOUTME: Stream URL commands
// ABOUTME: Builds hub stream endpoints and asks the hub for streaming info
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/mahub-go/pkg/mahub"
)

func streamURLCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stream-url",
		Short: "Build stream URLs for the hub's stream endpoints",
	}
	cmd.PersistentFlags().StringVar(&format, "format", string(mahub.FormatFLAC), "Stream format: mp3, flac or pcm")

	// printURL connects, builds a URL with the parsed format and prints it
	printURL := func(build func(c *mahub.Client, f mahub.StreamFormat) (string, error)) error {
		f, err := mahub.ParseStreamFormat(format)
		if err != nil {
			return err
		}
		return withHub(opts, func(ctx context.Context, c *mahub.Client) error {
			u, err := build(c, f)
			if err != nil {
				return err
			}
			fmt.Println(u)
			return nil
		})
	}

	var flow bool
	queue := &cobra.Command{
		Use:   "queue <session-id> <queue-id> <queue-item-id>",
		Short: "URL of a queue item stream",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printURL(func(c *mahub.Client, f mahub.StreamFormat) (string, error) {
				return c.QueueStreamURL(args[0], args[1], args[2], f, flow)
			})
		},
	}
	queue.Flags().BoolVar(&flow, "flow", false, "Use flow mode (gapless stream of the whole queue)")

	preview := &cobra.Command{
		Use:   "preview <item-id> <provider>",
		Short: "URL of a media item preview clip",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printURL(func(c *mahub.Client, _ mahub.StreamFormat) (string, error) {
				return c.PreviewURL(args[0], args[1])
			})
		},
	}

	var preAnnounce bool
	announcement := &cobra.Command{
		Use:   "announcement <player-id>",
		Short: "URL of a player's announcement stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printURL(func(c *mahub.Client, f mahub.StreamFormat) (string, error) {
				return c.AnnouncementURL(args[0], f, preAnnounce)
			})
		},
	}
	announcement.Flags().BoolVar(&preAnnounce, "pre-announce", false, "Include the pre-announcement chime")

	plugin := &cobra.Command{
		Use:   "plugin <source-id> <player-id>",
		Short: "URL of a plugin source stream",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printURL(func(c *mahub.Client, f mahub.StreamFormat) (string, error) {
				return c.PluginSourceURL(args[0], args[1], f)
			})
		},
	}

	var preferred string
	item := &cobra.Command{
		Use:   "item <media-item-id>",
		Short: "Ask the hub how to stream a media item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHub(opts, func(ctx context.Context, c *mahub.Client) error {
				info, err := c.GetStreamURL(ctx, args[0], mahub.StreamProtocol(preferred))
				if err != nil {
					return err
				}
				printStreamingInfo(info)
				return nil
			})
		},
	}
	item.Flags().StringVar(&preferred, "protocol", string(mahub.ProtocolHTTP), "Preferred protocol: resonate, http, https or file")

	resonate := &cobra.Command{
		Use:   "resonate <queue-id>",
		Short: "Show the Resonate stream of a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHub(opts, func(ctx context.Context, c *mahub.Client) error {
				if !c.SupportsResonate() {
					return fmt.Errorf("hub does not advertise Resonate streaming")
				}
				info, err := c.GetResonateStream(ctx, args[0])
				if err != nil {
					return err
				}
				if info == nil {
					return fmt.Errorf("queue %s has no Resonate stream", args[0])
				}
				printStreamingInfo(info)
				return nil
			})
		},
	}

	cmd.AddCommand(queue, preview, announcement, plugin, item, resonate)
	return cmd
}

func printStreamingInfo(info *mahub.StreamingInfo) {
	w := newTable()
	fmt.Fprintf(w, "URL:\t%s\n", info.URL)
	fmt.Fprintf(w, "Protocol:\t%s\n", info.Protocol)
	fmt.Fprintf(w, "Codec:\t%s (lossless: %t)\n", info.Format.Codec, info.Format.IsLossless())
	if info.Format.SampleRate > 0 {
		fmt.Fprintf(w, "Format:\t%d Hz, %d-bit, %d ch\n", info.Format.SampleRate, info.Format.BitDepth, info.Format.Channels)
	}
	if info.Duration != nil {
		fmt.Fprintf(w, "Duration:\t%.0fs\n", *info.Duration)
	}
	fmt.Fprintf(w, "Seekable:\t%t\n", info.SupportsSeek)
	fmt.Fprintf(w, "Live:\t%t\n", info.IsLive)
	w.Flush()
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reel/internal/client"
	"reel/internal/config"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				status, err := c.Status(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Running:    %s\n", yesNo(status.Running))
				fmt.Fprintf(out, "PID:        %d\n", status.PID)
				fmt.Fprintf(out, "Workers:    %d\n", status.Workers)
				fmt.Fprintf(out, "Operations: %s\n", strings.Join(status.Operations, ", "))
				fmt.Fprintf(out, "Queued:     %d\n", status.Stats.QueueDepth)
				fmt.Fprintf(out, "Processing: %d\n", status.Stats.Processing)
				if status.HistoryPath != "" {
					fmt.Fprintf(out, "History:    %s\n", status.HistoryPath)
				}
				for _, dep := range status.Dependencies {
					if dep.Available {
						fmt.Fprintf(out, "Tool:       %s ok (%s)\n", dep.Name, dep.Command)
					} else {
						fmt.Fprintf(out, "Tool:       %s missing: %s\n", dep.Name, dep.Detail)
					}
				}
				return nil
			})
		},
	}
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe PATH",
		Short: "Inspect a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				info, err := c.Probe(cmd.Context(), path)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Path:       %s\n", info.Path)
				fmt.Fprintf(out, "Duration:   %.2fs\n", info.Duration)
				fmt.Fprintf(out, "Size:       %d bytes\n", info.SizeBytes)
				fmt.Fprintf(out, "Bitrate:    %d\n", info.BitRate)
				fmt.Fprintf(out, "Resolution: %dx%d\n", info.Width, info.Height)
				fmt.Fprintf(out, "Codec:      %s\n", info.Codec)
				fmt.Fprintf(out, "FPS:        %.3f\n", info.FrameRate)
				return nil
			})
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var jobID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded job transitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				events, err := c.History(cmd.Context(), jobID, limit)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No history")
					return nil
				}
				rows := make([][]string, 0, len(events))
				for _, event := range events {
					rows = append(rows, []string{
						event.RecordedAt,
						event.JobID,
						event.Event,
						event.Operation,
						strconv.FormatFloat(event.Progress, 'f', 1, 64) + "%",
						event.Error,
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Recorded", "Job", "Event", "Operation", "Progress", "Error"},
					rows,
					nil))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&jobID, "job", "", "Filter by job id")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum events to return")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

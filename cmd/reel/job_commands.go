package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reel/internal/api"
	"reel/internal/client"
	"reel/internal/config"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var operation string
	var profile string
	var workflow string
	var output string
	var params []string

	cmd := &cobra.Command{
		Use:   "submit INPUT",
		Short: "Submit a processing job for an input file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			selected := 0
			for _, flag := range []string{operation, profile, workflow} {
				if flag != "" {
					selected++
				}
			}
			if selected != 1 {
				return errors.New("exactly one of --operation, --profile, or --workflow is required")
			}

			return ctx.withClient(func(c *client.Client) error {
				switch {
				case workflow != "":
					response, err := c.SubmitWorkflow(cmd.Context(), api.WorkflowJobRequest{Input: input, Workflow: workflow})
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Created %d jobs from workflow %q\n", len(response.Jobs), response.Workflow)
					for _, job := range response.Jobs {
						fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s\n", job.JobID, job.Profile)
					}
					return nil
				case profile != "":
					job, err := c.SubmitProfile(cmd.Context(), api.ProfileJobRequest{Input: input, Profile: profile, Output: output})
					if err != nil {
						return err
					}
					printSubmitted(cmd, job)
					return nil
				default:
					parsed, err := parseParams(params)
					if err != nil {
						return err
					}
					job, err := c.Submit(cmd.Context(), api.JobRequest{
						Input:      input,
						Operation:  operation,
						Output:     output,
						Parameters: parsed,
					})
					if err != nil {
						return err
					}
					printSubmitted(cmd, job)
					return nil
				}
			})
		},
	}

	cmd.Flags().StringVarP(&operation, "operation", "o", "", "Operation to run (transcode, compress, watermark, thumbnail, extract_audio, gif, concat, trim)")
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "Submit using a named profile")
	cmd.Flags().StringVarP(&workflow, "workflow", "w", "", "Submit one job per profile of a named workflow")
	cmd.Flags().StringVar(&output, "output", "", "Output path (derived from the input when omitted)")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Operation parameter as key=value (repeatable)")

	return cmd
}

func printSubmitted(cmd *cobra.Command, job api.JobView) {
	fmt.Fprintf(cmd.OutOrStdout(), "Job %s submitted\n", job.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "  operation: %s\n", job.Operation)
	fmt.Fprintf(cmd.OutOrStdout(), "  output:    %s\n", job.Output)
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in submission order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				jobs, err := c.List(cmd.Context(), status)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						job.ID,
						job.Operation,
						job.Status,
						strconv.FormatFloat(job.Progress, 'f', 1, 64) + "%",
						job.Input,
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Operation", "Status", "Progress", "Input"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (pending, processing, completed, failed, cancelled)")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show JOB_ID",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				job, err := c.Describe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:         %s\n", job.ID)
				fmt.Fprintf(out, "Operation:  %s\n", job.Operation)
				fmt.Fprintf(out, "Status:     %s\n", job.Status)
				fmt.Fprintf(out, "Progress:   %.1f%%\n", job.Progress)
				fmt.Fprintf(out, "Input:      %s\n", job.Input)
				fmt.Fprintf(out, "Output:     %s\n", job.Output)
				if job.CreatedAt != "" {
					fmt.Fprintf(out, "Created:    %s\n", job.CreatedAt)
				}
				if job.StartedAt != "" {
					fmt.Fprintf(out, "Started:    %s\n", job.StartedAt)
				}
				if job.CompletedAt != "" {
					fmt.Fprintf(out, "Completed:  %s\n", job.CompletedAt)
				}
				if job.ProcessingSeconds > 0 {
					fmt.Fprintf(out, "Duration:   %.2fs\n", job.ProcessingSeconds)
				}
				if job.Error != "" {
					fmt.Fprintf(out, "Error:      %s\n", job.Error)
				}
				return nil
			})
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel JOB_ID",
		Short: "Cancel a pending job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				job, err := c.Cancel(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s cancelled\n", job.ID)
				return nil
			})
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				stats, err := c.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Submitted", strconv.FormatInt(stats.Submitted, 10)},
					{"Processing", strconv.FormatInt(stats.Processing, 10)},
					{"Completed", strconv.FormatInt(stats.Completed, 10)},
					{"Failed", strconv.FormatInt(stats.Failed, 10)},
					{"Cancelled", strconv.FormatInt(stats.Cancelled, 10)},
					{"Queued", strconv.Itoa(stats.QueueDepth)},
					{"Active workers", strconv.Itoa(stats.ActiveWorkers)},
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Counter", "Value"},
					rows,
					[]columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"reel/internal/client"
)

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the available processing profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				profiles, err := c.Profiles(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(profiles))
				for _, profile := range profiles {
					rows = append(rows, []string{
						profile.Name,
						profile.Operation,
						formatParameters(profile.Parameters),
						profile.Description,
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Name", "Operation", "Parameters", "Description"},
					rows,
					nil))
				return nil
			})
		},
	}
}

func newWorkflowsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "workflows",
		Short: "List the available workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				workflows, err := c.Workflows(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(workflows))
				for _, workflow := range workflows {
					rows = append(rows, []string{
						workflow.Name,
						strings.Join(workflow.Profiles, ", "),
						workflow.Description,
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Name", "Profiles", "Description"},
					rows,
					nil))
				return nil
			})
		},
	}
}

func formatParameters(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, params[key]))
	}
	return strings.Join(parts, " ")
}

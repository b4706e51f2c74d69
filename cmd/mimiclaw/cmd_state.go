// MimiClaw - persona mimicry engine
// License: MIT

package main

import (
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show persona, evolution and archive state",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return dispatch("/status", nil)
		},
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [limit]",
		Short: "Show recent observations from the archive",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return dispatch("/history", args)
		},
	}
}

func newSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save [persona [name]|profile [name]|session|label ...]",
		Short: "Save a checkpoint, persona snapshot, profile, or session log",
		Args:  cobra.ArbitraryArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			return dispatch("/save", args)
		},
	}
}

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <checkpoint-id>|persona <persona-id>|profile <id-or-path>",
		Short: "Restore a checkpoint, persona snapshot, or profile",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			return dispatch("/load", args)
		},
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [persona] <dest>|profile [persona] <dest>",
		Short: "Export a persona snapshot or profile to a JSON file",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(_ *cobra.Command, args []string) error {
			return dispatch("/export", args)
		},
	}
}

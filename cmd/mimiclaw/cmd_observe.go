// MimiClaw - persona mimicry engine
// License: MIT

package main

import (
	"github.com/spf13/cobra"
)

func newObserveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "observe <provider> <prompt>",
		Short: "Send one prompt to a provider and learn from the reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return dispatch("/observe", args)
		},
	}
}

func newStudyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "study <provider> <prompt> [| <prompt> ...]",
		Short: "Run a batch of prompts against one provider",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return dispatch("/study", args)
		},
	}
}

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <providers> <prompt>",
		Short: "Ask several providers the same prompt and diff their styles",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return dispatch("/compare", args)
		},
	}
}

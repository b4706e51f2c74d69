// MimiClaw - persona mimicry engine
// License: MIT

package main

import (
	"github.com/spf13/cobra"
)

func newPersonaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "persona <list|show|use|blend> [args]",
		Short: "List, inspect, switch, or blend personas",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return dispatch("/persona", args)
		},
	}
}

func newProviderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provider <list|models|configure> [args]",
		Short: "Inspect and configure observation providers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return dispatch("/provider", args)
		},
	}
}

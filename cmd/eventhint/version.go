package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Csabesz1130/eventhint/pkg/buildinfo"
)

// newVersionCmd prints the build info baked in at link time via ldflags
// (see pkg/buildinfo for the -X var names).
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print eventhint's build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(buildinfo.Get("eventhint").ServiceName + " " + buildinfo.String())
			return nil
		},
	}
}

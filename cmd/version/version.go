// Package versioncmder
package versioncmder

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/rehearse/pkg/utils"
)

type VersionCommander struct{}

func NewVersionCmd() *cobra.Command {
	cmder := &VersionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the rehearse build version",
		Long:  "Print the version, commit and build time of this rehearse binary.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	return cmd
}

func (c *VersionCommander) run(w io.Writer) error {
	_, err := io.WriteString(w, utils.BuildInfo())
	return err
}

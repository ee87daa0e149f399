// Package rehearsecmder
package rehearsecmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/rehearse/cmd/rehearse/config"
	draftcmder "github.com/papercomputeco/rehearse/cmd/rehearse/draft"
	generatecmder "github.com/papercomputeco/rehearse/cmd/rehearse/generate"
	servecmder "github.com/papercomputeco/rehearse/cmd/rehearse/serve"
	versioncmder "github.com/papercomputeco/rehearse/cmd/version"
)

const rehearseLongDesc string = `Rehearse generates role-play training dialogs.

Describe a scene, stream the dialog from the generation service as it is
written, then adjust it until it reads right:
  rehearse serve                   Run the generation server
  rehearse generate --scene s.toml Generate a dialog for a scene
  rehearse adjust -i "shorter"     Rewrite the last generated dialog
  rehearse draft show              Print the last generated dialog
  rehearse config list             Show persistent configuration`

const rehearseShortDesc string = "Rehearse - training dialog generator"

func NewRehearseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "rehearse",
		Short:        rehearseShortDesc,
		Long:         rehearseLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .rehearse/ directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(generatecmder.NewGenerateCmd())
	cmd.AddCommand(generatecmder.NewAdjustCmd())
	cmd.AddCommand(draftcmder.NewDraftCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

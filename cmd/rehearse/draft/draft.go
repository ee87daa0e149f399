// Package draftcmder provides the draft command for inspecting and clearing
// the dialog saved by the last finished generation.
package draftcmder

import (
	"errors"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/rehearse/pkg/cliui"
	"github.com/papercomputeco/rehearse/pkg/dotdir"
)

const draftLongDesc string = `Inspect or clear the saved draft.

Every finished "rehearse generate" or "rehearse adjust" saves its dialog and
scene as draft.json in the .rehearse/ directory. "rehearse adjust" without
--prior continues from it.

Examples:
  rehearse draft show
  rehearse draft show --scene > late-parcel.toml
  rehearse draft clear`

const draftShortDesc string = "Inspect or clear the saved draft"

var errNoDraft = errors.New("no saved draft")

func NewDraftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: draftShortDesc,
		Long:  draftLongDesc,
	}

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newClearCmd())

	return cmd
}

func newShowCmd() *cobra.Command {
	var scene bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the saved dialog",
		Long: `Print the saved dialog.

With --scene the scene it was generated from is printed instead, as a TOML
scene file that "rehearse generate --scene" accepts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runShow(cmd.OutOrStdout(), configDir, scene)
		},
	}

	cmd.Flags().BoolVar(&scene, "scene", false, "Print the draft's scene as TOML")

	return cmd
}

func runShow(w io.Writer, configDir string, scene bool) error {
	draft, err := dotdir.NewManager().LoadDraft(configDir)
	if err != nil {
		return fmt.Errorf("loading draft: %w", err)
	}
	if draft == nil {
		return errNoDraft
	}

	if scene {
		return toml.NewEncoder(w).Encode(draft.Scene)
	}

	fmt.Fprintln(w, draft.Content)
	return nil
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the saved draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cliui.Step(cmd.OutOrStdout(), "Clearing draft", func() error {
				if err := dotdir.NewManager().ClearDraft(configDir); err != nil {
					return fmt.Errorf("clearing draft: %w", err)
				}
				return nil
			})
		},
	}
}

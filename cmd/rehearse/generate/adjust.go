package generatecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/rehearse/pkg/dotdir"
	"github.com/papercomputeco/rehearse/pkg/session"
)

type adjustCommander struct {
	opts        clientOptions
	prior       string
	instruction string
}

const adjustLongDesc string = `Rewrite a generated dialog according to an instruction.

The dialog to rewrite comes from --prior (a file, or - for stdin). Without
--prior the draft saved by the last "rehearse generate" or "rehearse adjust"
is used, together with the scene it was generated from. Scene flags and
--scene override the draft's scene.

Examples:
  rehearse adjust -i "make the customer more polite"
  rehearse adjust --prior dialog.txt --scene late-parcel.toml -i "shorten it to six turns"
  cat dialog.txt | rehearse adjust --prior - -i "add a refund offer" --plain`

const adjustShortDesc string = "Rewrite a generated dialog"

func NewAdjustCmd() *cobra.Command {
	cmder := &adjustCommander{}

	cmd := &cobra.Command{
		Use:   "adjust",
		Short: adjustShortDesc,
		Long:  adjustLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(cmder.instruction) == "" {
				return errors.New("an adjustment instruction is required (--instruction)")
			}
			return cmder.opts.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return cmder.run(ctx, cmd)
		},
	}

	cmder.opts.register(cmd)
	cmd.Flags().StringVarP(&cmder.prior, "prior", "p", "", "Dialog to rewrite (file path, or - for stdin; default: saved draft)")
	cmd.Flags().StringVarP(&cmder.instruction, "instruction", "i", "", "How the dialog should change")

	return cmd
}

func (c *adjustCommander) run(ctx context.Context, cmd *cobra.Command) error {
	prior, base, err := c.resolvePrior(cmd.InOrStdin())
	if err != nil {
		return err
	}

	source, err := newSceneSource(cmd, &c.opts, base)
	if err != nil {
		return err
	}
	scene, err := source.Scene()
	if err != nil {
		return err
	}

	rt, err := c.opts.open(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	start := adjustStarter(rt.controller, scene, prior, c.instruction)

	if c.opts.interactive() {
		model := newGenerateModel(ctx, rt.controller, scene, start)
		model.onDone = func(scene session.SceneParameters, snap session.Snapshot) error {
			return c.opts.finished(rt, scene, snap)
		}
		snap, err := runTUI(ctx, model)
		if err != nil {
			return err
		}
		return snapshotErr(snap)
	}

	renderer := &plainRenderer{reasoning: cmd.ErrOrStderr(), content: cmd.OutOrStdout()}
	snap, err := streamPlain(ctx, rt, renderer, start)
	if err != nil {
		return err
	}
	if err := c.opts.finished(rt, scene, snap); err != nil {
		return err
	}
	return snapshotErr(snap)
}

// resolvePrior returns the dialog to adjust and, when it came from the saved
// draft, the scene it was generated from.
func (c *adjustCommander) resolvePrior(stdin io.Reader) (string, *session.SceneParameters, error) {
	switch c.prior {
	case "":
		draft, err := dotdir.NewManager().LoadDraft(c.opts.configDir)
		if err != nil {
			return "", nil, fmt.Errorf("loading draft: %w", err)
		}
		if draft == nil || strings.TrimSpace(draft.Content) == "" {
			return "", nil, errors.New("no saved draft to adjust; run \"rehearse generate\" first or pass --prior")
		}
		return draft.Content, &draft.Scene, nil

	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", nil, fmt.Errorf("reading prior dialog: %w", err)
		}
		return nonEmpty(string(data))

	default:
		data, err := os.ReadFile(c.prior)
		if err != nil {
			return "", nil, fmt.Errorf("reading prior dialog: %w", err)
		}
		return nonEmpty(string(data))
	}
}

func nonEmpty(prior string) (string, *session.SceneParameters, error) {
	if strings.TrimSpace(prior) == "" {
		return "", nil, errors.New("prior dialog is empty")
	}
	return prior, nil, nil
}

// Package generatecmder provides the generate and adjust commands: they drive
// generation sessions against the generation service and render the
// reasoning and dialog channels as they stream.
package generatecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/rehearse/pkg/cliui"
	"github.com/papercomputeco/rehearse/pkg/session"
)

type generateCommander struct {
	opts  clientOptions
	watch bool
}

const generateLongDesc string = `Generate a training dialog for a scene.

The scene comes from a TOML file (--scene) whose keys match the form fields,
with individual flags overriding file values:

  scene_description = "A customer calls about a late parcel"
  scene_name        = "Late delivery"
  scene_goal        = "Calm the customer and offer a resolution"
  ai_role           = "customer"
  my_role           = "agent"
  opening_line      = "Hello, how can I help you today?"
  instructions      = "Keep the customer skeptical"
  dialog_turns      = 8

The model's reasoning and the dialog stream into separate panes. In the
interactive view press a to adjust the dialog, c to copy it, x to cancel,
r to regenerate, and q to quit. With --plain (or when stdout is not a
terminal) reasoning streams to stderr and the dialog to stdout.

The finished dialog is saved as the draft in .rehearse/ so "rehearse adjust"
can continue from it.

Examples:
  rehearse generate --scene late-parcel.toml
  rehearse generate --scene late-parcel.toml --file policy.md --turns 6
  rehearse generate --scene late-parcel.toml --watch
  rehearse generate --description "Hotel check-in" --ai-role guest --my-role clerk --plain`

const generateShortDesc string = "Generate a training dialog"

func NewGenerateCmd() *cobra.Command {
	cmder := &generateCommander{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: generateShortDesc,
		Long:  generateLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cmder.opts.load(cmd); err != nil {
				return err
			}
			if cmder.watch && cmder.opts.scenePath == "" {
				return errors.New("--watch requires --scene")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return cmder.run(ctx, cmd)
		},
	}

	cmder.opts.register(cmd)
	cmd.Flags().StringVarP(&cmder.opts.scene.file, "file", "f", "", "Reference document to attach")
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Regenerate whenever the scene file changes")

	return cmd
}

func (c *generateCommander) run(ctx context.Context, cmd *cobra.Command) error {
	source, err := newSceneSource(cmd, &c.opts, nil)
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

	var changes <-chan struct{}
	if c.watch {
		changes, err = watchFile(ctx, c.opts.scenePath, rt.logger)
		if err != nil {
			return err
		}
	}

	if c.opts.interactive() {
		model := newGenerateModel(ctx, rt.controller, scene, createStarter(rt.controller, scene, source.Attachment))
		model.source = source
		model.changes = changes
		model.onDone = func(scene session.SceneParameters, snap session.Snapshot) error {
			return c.opts.finished(rt, scene, snap)
		}
		snap, err := runTUI(ctx, model)
		if err != nil {
			return err
		}
		return snapshotErr(snap)
	}

	return c.runPlain(ctx, rt, source, scene, changes, cmd.ErrOrStderr(), cmd.OutOrStdout())
}

// runPlain streams one session, then with --watch one more per scene change.
func (c *generateCommander) runPlain(
	ctx context.Context,
	rt *clientRuntime,
	source *sceneSource,
	scene session.SceneParameters,
	changes <-chan struct{},
	stderr, stdout io.Writer,
) error {
	renderer := &plainRenderer{reasoning: stderr, content: stdout}

	for {
		snap, err := streamPlain(ctx, rt, renderer, func(ctx context.Context) (string, error) {
			return rt.controller.Start(ctx, scene, source.Attachment())
		})
		if err != nil {
			return err
		}
		if err := c.opts.finished(rt, scene, snap); err != nil {
			return err
		}

		if changes == nil {
			return snapshotErr(snap)
		}

		scene, err = nextScene(ctx, source, changes, stderr)
		if err != nil {
			return nil
		}
		fmt.Fprintln(stderr, cliui.DimStyle.Render("scene changed, regenerating"))
	}
}

// nextScene waits for the scene file to change and reloads it. A scene that
// fails to load is reported and the wait continues.
func nextScene(ctx context.Context, source *sceneSource, changes <-chan struct{}, stderr io.Writer) (session.SceneParameters, error) {
	for {
		select {
		case <-ctx.Done():
			return session.SceneParameters{}, ctx.Err()
		case <-changes:
		}

		scene, err := source.Scene()
		if err == nil {
			return scene, nil
		}
		fmt.Fprintln(stderr, summary(session.Snapshot{Status: session.Failed, Err: err}))
	}
}

// streamPlain starts a session and renders it to completion.
func streamPlain(ctx context.Context, rt *clientRuntime, renderer *plainRenderer, start starter) (session.Snapshot, error) {
	id, err := start(ctx)
	if err != nil {
		return session.Snapshot{}, err
	}

	snap := renderer.render(ctx, rt.controller, id)
	fmt.Fprintln(renderer.content)
	fmt.Fprintln(renderer.reasoning, summary(snap))
	return snap, nil
}

// snapshotErr turns a failed session into the command's exit error.
func snapshotErr(snap session.Snapshot) error {
	if snap.Status == session.Failed {
		return fmt.Errorf("generation failed: %w", snap.Err)
	}
	return nil
}

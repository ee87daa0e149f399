package generatecmder

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/rehearse/pkg/config"
	"github.com/papercomputeco/rehearse/pkg/session"
)

// sceneFlags override individual scene file fields.
type sceneFlags struct {
	description  string
	name         string
	goal         string
	aiRole       string
	myRole       string
	openingLine  string
	instructions string
	file         string
}

func (f *sceneFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.description, "description", "", "Scene description")
	cmd.Flags().StringVar(&f.name, "name", "", "Scene name")
	cmd.Flags().StringVar(&f.goal, "goal", "", "What the trainee should achieve")
	cmd.Flags().StringVar(&f.aiRole, "ai-role", "", "Role played by the AI")
	cmd.Flags().StringVar(&f.myRole, "my-role", "", "Role played by the trainee")
	cmd.Flags().StringVar(&f.openingLine, "opening", "", "Opening line of the dialog")
	cmd.Flags().StringVar(&f.instructions, "instructions", "", "Extra instructions for the generator")
}

// apply copies every flag the user set onto p.
func (f *sceneFlags) apply(cmd *cobra.Command, p *session.SceneParameters) {
	set := func(name, value string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst = value
		}
	}
	set("description", f.description, &p.SceneDescription)
	set("name", f.name, &p.SceneName)
	set("goal", f.goal, &p.SceneGoal)
	set("ai-role", f.aiRole, &p.AIRole)
	set("my-role", f.myRole, &p.MyRole)
	set("opening", f.openingLine, &p.OpeningLine)
	set("instructions", f.instructions, &p.Instructions)
}

// loadScene decodes a scene TOML file. An empty path yields an empty scene.
func loadScene(path string) (session.SceneParameters, error) {
	var p session.SceneParameters
	if path == "" {
		return p, nil
	}

	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return p, fmt.Errorf("reading scene %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return p, fmt.Errorf("reading scene %s: unknown key %q", path, undecoded[0].String())
	}
	return p, nil
}

// sceneSource rebuilds the scene on demand so a watched file can be
// re-read between sessions.
type sceneSource struct {
	cmd       *cobra.Command
	opts      *clientOptions
	base      *session.SceneParameters
	reference []byte
}

func newSceneSource(cmd *cobra.Command, opts *clientOptions, base *session.SceneParameters) (*sceneSource, error) {
	src := &sceneSource{cmd: cmd, opts: opts, base: base}
	if opts.scene.file != "" {
		data, err := os.ReadFile(opts.scene.file)
		if err != nil {
			return nil, fmt.Errorf("reading attachment: %w", err)
		}
		src.reference = data
	}
	return src, nil
}

// Scene returns the scene file merged with flag overrides. Without a scene
// file the base scene, if any, is used. --turns beats the scene file, which
// beats env, config and defaults.
func (s *sceneSource) Scene() (session.SceneParameters, error) {
	var p session.SceneParameters
	switch {
	case s.opts.scenePath != "":
		var err error
		p, err = loadScene(s.opts.scenePath)
		if err != nil {
			return p, err
		}
	case s.base != nil:
		p = *s.base
	}

	s.opts.scene.apply(s.cmd, &p)

	if s.cmd.Flags().Changed(config.Flags[config.FlagDialogTurns].Name) || p.DialogTurns == 0 {
		p.DialogTurns = s.opts.turns
	}
	p.DialogTurns = session.ClampTurns(p.DialogTurns)

	return p, nil
}

// Attachment returns a fresh reader over the reference document, or nil.
func (s *sceneSource) Attachment() *session.Attachment {
	if s.reference == nil {
		return nil
	}
	return &session.Attachment{
		Name:    filepath.Base(s.opts.scene.file),
		Content: bytes.NewReader(s.reference),
	}
}

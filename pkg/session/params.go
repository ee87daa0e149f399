package session

import (
	"io"
	"strconv"
	"strings"
)

// DefaultDialogTurns is the dialog length used when none is configured.
const DefaultDialogTurns = 10

// SceneParameters is the draft of a training scenario. The TOML tags match
// the scene files read by "rehearse generate --scene".
type SceneParameters struct {
	SceneDescription string `toml:"scene_description" json:"scene_description"`
	SceneName        string `toml:"scene_name" json:"scene_name"`
	SceneGoal        string `toml:"scene_goal" json:"scene_goal"`
	AIRole           string `toml:"ai_role" json:"ai_role"`
	MyRole           string `toml:"my_role" json:"my_role"`
	OpeningLine      string `toml:"opening_line" json:"opening_line"`
	Instructions     string `toml:"instructions" json:"instructions"`
	DialogTurns      int    `toml:"dialog_turns" json:"dialog_turns"`
}

// Attachment is an optional reference file sent with a create request.
type Attachment struct {
	Name    string
	Content io.Reader
}

// ClampTurns returns n, or 1 when n is not positive.
func ClampTurns(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// ParseTurns converts user input to a dialog-turn count. Non-numeric and
// non-positive input clamps to 1 instead of failing.
func ParseTurns(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 1
	}
	return ClampTurns(n)
}

// Package prompt renders the system prompts sent to the upstream model for
// dialog generation and adjustment.
package prompt

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/rehearse/pkg/session"
)

// noReference fills the reference section when no attachment was supplied.
const noReference = "none"

// CreateSystemPrompt returns the instructions for generating a fresh training
// dialog from params. reference is the inlined attachment text, if any.
func CreateSystemPrompt(params session.SceneParameters, reference string) string {
	var b strings.Builder

	turns := session.ClampTurns(params.DialogTurns)
	fmt.Fprintf(&b, "You are an expert in designing customer-service training dialogs. Generate a %d-turn training dialog from the scene below.\n\n", turns)
	writeScene(&b, params)

	if reference = strings.TrimSpace(reference); reference == "" {
		reference = noReference
	}
	fmt.Fprintf(&b, "Reference material: %s\n\n", reference)

	fmt.Fprintf(&b, `Requirements:
1. The dialog must fit the scene description and goal.
2. The AI plays the %[1]s role.
3. The trainee plays the %[2]s role.
4. The first line must be the trainee's opening line.
5. The dialog must strictly follow the instructions.
6. The dialog must read naturally, like a real conversation.
7. Speakers strictly alternate; neither side speaks twice in a row.
8. Keep the reasoning brief.

Label every line with its speaker, in this format:
%[2]s: first line
%[1]s: second line
%[2]s: third line
%[1]s: fourth line
...
`, params.AIRole, params.MyRole)

	return b.String()
}

// AdjustSystemPrompt returns the instructions for rewriting prior, an earlier
// dialog for the same scene, according to instruction.
func AdjustSystemPrompt(params session.SceneParameters, prior, instruction string) string {
	var b strings.Builder

	b.WriteString("You are an expert in designing customer-service training dialogs. Revise the existing training dialog below according to the requested adjustment.\n\n")
	writeScene(&b, params)

	fmt.Fprintf(&b, "Existing dialog:\n%s\n\n", strings.TrimSpace(prior))
	fmt.Fprintf(&b, "Requested adjustment:\n%s\n\n", strings.TrimSpace(instruction))

	fmt.Fprintf(&b, `Requirements:
1. Apply the adjustment and keep everything it does not mention.
2. Keep the %[1]s and %[2]s roles and the strict alternation of speakers.
3. Keep the same speaker labels as the existing dialog.
4. Output the complete revised dialog, not a diff.
5. Keep the reasoning brief.
`, params.MyRole, params.AIRole)

	return b.String()
}

func writeScene(b *strings.Builder, params session.SceneParameters) {
	fmt.Fprintf(b, "Scene description: %s\n", params.SceneDescription)
	fmt.Fprintf(b, "Scene name: %s\n", params.SceneName)
	fmt.Fprintf(b, "Scene goal: %s\n", params.SceneGoal)
	fmt.Fprintf(b, "AI role: %s\n", params.AIRole)
	fmt.Fprintf(b, "Trainee role: %s\n", params.MyRole)
	fmt.Fprintf(b, "Opening line: %s\n", params.OpeningLine)
	fmt.Fprintf(b, "Instructions: %s\n\n", params.Instructions)
}

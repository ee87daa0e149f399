package generatecmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/rehearse/pkg/cliui"
	"github.com/papercomputeco/rehearse/pkg/session"
)

// plainRenderer writes each channel's new text as it arrives: reasoning to
// one writer, dialog content to the other.
type plainRenderer struct {
	reasoning io.Writer
	content   io.Writer

	wroteReasoning int
	wroteContent   int
}

// render follows the session with the given id until it ends and returns its
// final snapshot. If ctx ends first the session is cancelled and whatever
// text had arrived is kept.
func (p *plainRenderer) render(ctx context.Context, ctrl *session.Controller, id string) session.Snapshot {
	p.wroteReasoning, p.wroteContent = 0, 0

	for {
		select {
		case <-ctx.Done():
			ctrl.Cancel()
			snap := ctrl.Snapshot()
			p.write(snap)
			return snap
		case snap := <-ctrl.Updates():
			if snap.ID != id {
				continue
			}
			p.write(snap)
			if snap.Status.Done() {
				return snap
			}
		}
	}
}

func (p *plainRenderer) write(snap session.Snapshot) {
	if n := len(snap.Reasoning); n > p.wroteReasoning {
		fmt.Fprint(p.reasoning, dimLines(snap.Reasoning[p.wroteReasoning:]))
		p.wroteReasoning = n
	}
	if n := len(snap.Content); n > p.wroteContent {
		if p.wroteContent == 0 && p.wroteReasoning > 0 {
			fmt.Fprintln(p.reasoning)
		}
		fmt.Fprint(p.content, snap.Content[p.wroteContent:])
		p.wroteContent = n
	}
}

// dimLines styles each line of text on its own. lipgloss pads a multi-line
// render to its widest line, which would add spaces the stream never sent.
func dimLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = cliui.DimStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

// summary is the one-line outcome printed after a plain session.
func summary(snap session.Snapshot) string {
	switch snap.Status {
	case session.Failed:
		return fmt.Sprintf("%s %s %s", cliui.FailMark, cliui.ErrorStyle.Render("generation failed:"), snap.Err)
	default:
		line := fmt.Sprintf("%s %s", cliui.SuccessMark, cliui.DimStyle.Render(
			fmt.Sprintf("%d frames, %d bytes of dialog", snap.Stats.Frames, len(snap.Content)),
		))
		if snap.Stats.Dropped > 0 {
			line += cliui.DimStyle.Render(fmt.Sprintf(", %d malformed frames skipped", snap.Stats.Dropped))
		}
		return line
	}
}

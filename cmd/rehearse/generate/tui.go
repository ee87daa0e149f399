package generatecmder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/rehearse/pkg/cliui"
	"github.com/papercomputeco/rehearse/pkg/session"
)

type pane int

const (
	paneContent pane = iota
	paneReasoning
)

// chromeLines is the header, the two pane titles and the footer.
const chromeLines = 5

var (
	tuiTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	tuiPaneStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	tuiFocusStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("215")).Underline(true)
	tuiAIStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	tuiTraineeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
)

// starter opens one session on the controller.
type starter func(ctx context.Context) (string, error)

type generateKeyMap struct {
	Adjust     key.Binding
	Copy       key.Binding
	Cancel     key.Binding
	Regenerate key.Binding
	Focus      key.Binding
	Submit     key.Binding
	Back       key.Binding
	Quit       key.Binding
	Interrupt  key.Binding
}

func (k generateKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Adjust, k.Copy, k.Cancel, k.Regenerate, k.Focus, k.Quit}
}

func (k generateKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Adjust, k.Copy, k.Cancel, k.Regenerate}, {k.Focus, k.Submit, k.Back, k.Quit}}
}

func defaultKeyMap() generateKeyMap {
	return generateKeyMap{
		Adjust:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "adjust")),
		Copy:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy")),
		Cancel:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel")),
		Regenerate: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "regenerate")),
		Focus:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Interrupt:  key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

type snapshotMsg session.Snapshot

// startedMsg reports the outcome of the gen'th start.
type startedMsg struct {
	gen int
	id  string
	err error
}

type statusMsg string

type sceneChangedMsg struct{}

type generateModel struct {
	ctx     context.Context
	ctrl    *session.Controller
	source  *sceneSource
	scene   session.SceneParameters
	last    starter
	changes <-chan struct{}
	onDone  func(session.SceneParameters, session.Snapshot) error

	// gen counts starts. activeID is the session of the latest start and is
	// empty while that start is pending; snapshots of other sessions are
	// dropped.
	gen      int
	activeID string

	snap      session.Snapshot
	savedID   string
	focus     pane
	adjusting bool
	status    string
	width     int
	height    int

	reasoning viewport.Model
	content   viewport.Model
	spinner   spinner.Model
	input     textinput.Model
	keys      generateKeyMap
	help      help.Model
}

func newGenerateModel(ctx context.Context, ctrl *session.Controller, scene session.SceneParameters, first starter) generateModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	input := textinput.New()
	input.Prompt = "adjust> "
	input.Placeholder = "e.g. make the customer angrier"
	input.CharLimit = 500

	return generateModel{
		ctx:       ctx,
		ctrl:      ctrl,
		scene:     scene,
		last:      first,
		reasoning: viewport.New(80, 6),
		content:   viewport.New(80, 14),
		spinner:   sp,
		input:     input,
		keys:      defaultKeyMap(),
		help:      help.New(),
	}
}

// createStarter starts a create session for scene.
func createStarter(ctrl *session.Controller, scene session.SceneParameters, attachment func() *session.Attachment) starter {
	return func(ctx context.Context) (string, error) {
		var file *session.Attachment
		if attachment != nil {
			file = attachment()
		}
		return ctrl.Start(ctx, scene, file)
	}
}

// adjustStarter starts an adjust session rewriting prior.
func adjustStarter(ctrl *session.Controller, scene session.SceneParameters, prior, instruction string) starter {
	return func(ctx context.Context) (string, error) {
		return ctrl.Adjust(ctx, scene, prior, instruction)
	}
}

func waitForSnapshot(ch <-chan session.Snapshot) bubbletea.Cmd {
	return func() bubbletea.Msg {
		return snapshotMsg(<-ch)
	}
}

func waitForChange(ch <-chan struct{}) bubbletea.Cmd {
	if ch == nil {
		return nil
	}
	return func() bubbletea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return sceneChangedMsg{}
	}
}

func startCmd(ctx context.Context, start starter, gen int) bubbletea.Cmd {
	return func() bubbletea.Msg {
		id, err := start(ctx)
		return startedMsg{gen: gen, id: id, err: err}
	}
}

func cancelCmd(ctrl *session.Controller) bubbletea.Cmd {
	return func() bubbletea.Msg {
		ctrl.Cancel()
		return nil
	}
}

func copyCmd(text string) bubbletea.Cmd {
	return func() bubbletea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return statusMsg("copy failed: " + err.Error())
		}
		return statusMsg(fmt.Sprintf("copied %d characters", len(text)))
	}
}

func saveCmd(onDone func(session.SceneParameters, session.Snapshot) error, scene session.SceneParameters, snap session.Snapshot) bubbletea.Cmd {
	if onDone == nil {
		return nil
	}
	return func() bubbletea.Msg {
		if err := onDone(scene, snap); err != nil {
			return statusMsg(err.Error())
		}
		return statusMsg("draft saved")
	}
}

func (m generateModel) Init() bubbletea.Cmd {
	return bubbletea.Batch(
		m.spinner.Tick,
		waitForSnapshot(m.ctrl.Updates()),
		startCmd(m.ctx, m.last, m.gen),
		waitForChange(m.changes),
	)
}

func (m generateModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case snapshotMsg:
		next := waitForSnapshot(m.ctrl.Updates())
		if msg.ID == "" || msg.ID != m.activeID {
			return m, next
		}
		return m, bubbletea.Batch(next, m.apply(session.Snapshot(msg)))

	case startedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.status = ""
		m.activeID = msg.id
		// Updates keeps only the latest snapshot, so some of this session's
		// may have been dropped while the start was pending.
		if snap := m.ctrl.Snapshot(); snap.ID == m.activeID {
			return m, m.apply(snap)
		}
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case sceneChangedMsg:
		cmds := []bubbletea.Cmd{waitForChange(m.changes)}
		if m.source == nil {
			return m, bubbletea.Batch(cmds...)
		}
		scene, err := m.source.Scene()
		if err != nil {
			m.status = err.Error()
			return m, bubbletea.Batch(cmds...)
		}
		m.scene = scene
		m.status = "scene changed, regenerating"
		return m, bubbletea.Batch(append(cmds, m.begin(createStarter(m.ctrl, scene, m.source.Attachment)))...)

	case spinner.TickMsg:
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case bubbletea.KeyMsg:
		if m.adjusting {
			return m.handleAdjustKey(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m generateModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	streaming := m.snap.Status == session.Streaming

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, bubbletea.Quit
	case key.Matches(msg, m.keys.Cancel):
		if streaming {
			return m, cancelCmd(m.ctrl)
		}
		return m, nil
	case key.Matches(msg, m.keys.Regenerate):
		return m, m.begin(m.last)
	case key.Matches(msg, m.keys.Adjust):
		if streaming || m.snap.Content == "" {
			return m, nil
		}
		m.adjusting = true
		m.resize()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Copy):
		if m.snap.Content == "" {
			return m, nil
		}
		return m, copyCmd(m.snap.Content)
	case key.Matches(msg, m.keys.Focus):
		if m.focus == paneContent {
			m.focus = paneReasoning
		} else {
			m.focus = paneContent
		}
		return m, nil
	}

	var cmd bubbletea.Cmd
	if m.focus == paneReasoning {
		m.reasoning, cmd = m.reasoning.Update(msg)
	} else {
		m.content, cmd = m.content.Update(msg)
	}
	return m, cmd
}

func (m generateModel) handleAdjustKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Interrupt):
		return m, bubbletea.Quit
	case key.Matches(msg, m.keys.Back):
		m.adjusting = false
		m.input.Blur()
		m.input.Reset()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		instruction := strings.TrimSpace(m.input.Value())
		if instruction == "" {
			return m, nil
		}
		m.adjusting = false
		m.input.Blur()
		m.input.Reset()
		return m, m.begin(adjustStarter(m.ctrl, m.scene, m.snap.Content, instruction))
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// begin makes start the latest starter and runs it. Snapshots are ignored
// until its startedMsg names the new session.
func (m *generateModel) begin(start starter) bubbletea.Cmd {
	m.last = start
	m.gen++
	m.activeID = ""
	return startCmd(m.ctx, start, m.gen)
}

// apply shows snap and saves it once when its session has finished.
func (m *generateModel) apply(snap session.Snapshot) bubbletea.Cmd {
	m.snap = snap
	m.refresh()
	if !snap.Status.Done() || snap.ID == m.savedID {
		return nil
	}
	m.savedID = snap.ID
	return saveCmd(m.onDone, m.scene, snap)
}

// resize splits the height: a third for reasoning, the rest for dialog.
func (m *generateModel) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	avail := max(m.height-chromeLines, 2)
	m.reasoning.Width = m.width
	m.content.Width = m.width
	m.reasoning.Height = max(avail/3, 1)
	m.content.Height = max(avail-m.reasoning.Height, 1)
	m.input.Width = max(m.width-len(m.input.Prompt)-1, 10)
	m.refresh()
}

func (m *generateModel) refresh() {
	width := m.reasoning.Width

	reasoning := wordwrap.String(m.snap.Reasoning, width)
	if m.snap.Status.Done() && m.snap.Reasoning != "" {
		if rendered, err := cliui.RenderMarkdown(m.snap.Reasoning, width); err == nil {
			reasoning = rendered
		}
	}
	m.reasoning.SetContent(reasoning)
	m.content.SetContent(wordwrap.String(styleDialog(m.snap.Content, m.scene), width))

	if m.snap.Status == session.Streaming {
		m.reasoning.GotoBottom()
		m.content.GotoBottom()
	}
}

// styleDialog colors each line by the speaker its role prefix names.
func styleDialog(text string, scene session.SceneParameters) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		switch {
		case scene.AIRole != "" && strings.HasPrefix(line, scene.AIRole+":"):
			lines[i] = tuiAIStyle.Render(line)
		case scene.MyRole != "" && strings.HasPrefix(line, scene.MyRole+":"):
			lines[i] = tuiTraineeStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func (m generateModel) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.paneTitle("Reasoning", paneReasoning))
	b.WriteString("\n")
	b.WriteString(m.reasoning.View())
	b.WriteString("\n")
	b.WriteString(m.paneTitle("Dialog", paneContent))
	b.WriteString("\n")
	b.WriteString(m.content.View())
	b.WriteString("\n")

	switch {
	case m.adjusting:
		b.WriteString(m.input.View())
	case m.status != "":
		b.WriteString(cliui.DimStyle.Render(m.status))
		b.WriteString("  ")
		b.WriteString(m.help.View(m.keys))
	default:
		b.WriteString(m.help.View(m.keys))
	}

	return b.String()
}

func (m generateModel) header() string {
	title := tuiTitleStyle.Render("rehearse")
	if m.scene.SceneName != "" {
		title += " " + cliui.ValueStyle.Render(m.scene.SceneName)
	}

	var state string
	switch m.snap.Status {
	case session.Streaming:
		state = m.spinner.View() + " " + cliui.DimStyle.Render(m.snap.Mode.String()+" streaming")
	case session.Completed:
		state = cliui.SuccessMark + " " + cliui.DimStyle.Render(fmt.Sprintf("completed, %d frames", m.snap.Stats.Frames))
	case session.Failed:
		state = cliui.FailMark + " " + cliui.ErrorStyle.Render(errorText(m.snap.Err))
	default:
		state = cliui.DimStyle.Render("idle")
	}

	return title + "  " + state
}

func (m generateModel) paneTitle(name string, p pane) string {
	if m.focus == p {
		return tuiFocusStyle.Render(name)
	}
	return tuiPaneStyle.Render(name)
}

func errorText(err error) string {
	if err == nil {
		return "failed"
	}
	return err.Error()
}

// runTUI runs the interactive view until the user quits and returns the last
// snapshot it rendered.
func runTUI(ctx context.Context, model generateModel) (session.Snapshot, error) {
	lipgloss.SetColorProfile(termenv.EnvColorProfile())

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	final, err := program.Run()
	if err != nil && !(errors.Is(err, bubbletea.ErrProgramKilled) && ctx.Err() != nil) {
		return session.Snapshot{}, err
	}

	if fm, ok := final.(generateModel); ok {
		return fm.snap, nil
	}
	return model.ctrl.Snapshot(), nil
}

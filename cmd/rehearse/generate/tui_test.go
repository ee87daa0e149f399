package generatecmder

import (
	"context"
	"errors"

	bubbletea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/rehearse/pkg/llm"
	"github.com/papercomputeco/rehearse/pkg/session"
)

func runes(s string) bubbletea.KeyMsg {
	return bubbletea.KeyMsg{Type: bubbletea.KeyRunes, Runes: []rune(s)}
}

func update(m generateModel, msg bubbletea.Msg) (generateModel, bubbletea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(generateModel), cmd
}

var _ = Describe("generate TUI model", func() {
	var (
		m       generateModel
		started int
	)

	scene := session.SceneParameters{SceneName: "Late delivery", AIRole: "customer", MyRole: "agent"}

	BeforeEach(func() {
		started = 0
		ctrl := session.NewController(session.Config{Target: "http://127.0.0.1:1"})
		m = newGenerateModel(context.Background(), ctrl, scene, func(context.Context) (string, error) {
			started++
			return "s1", nil
		})
		m, _ = update(m, bubbletea.WindowSizeMsg{Width: 80, Height: 30})
		m, _ = update(m, startedMsg{id: "s1"})
	})

	It("splits the height between the panes", func() {
		Expect(m.reasoning.Height + m.content.Height).To(Equal(30 - chromeLines))
		Expect(m.reasoning.Height).To(BeNumerically("<", m.content.Height))
		Expect(m.content.Width).To(Equal(80))
	})

	It("renders streamed text into the panes", func() {
		m, _ = update(m, snapshotMsg{ID: "s1", Status: session.Streaming, Reasoning: "thinking", Content: "agent: hi"})
		Expect(m.reasoning.View()).To(ContainSubstring("thinking"))
		Expect(m.content.View()).To(ContainSubstring("agent: hi"))
		Expect(m.View()).To(ContainSubstring("Late delivery"))
		Expect(m.View()).To(ContainSubstring("streaming"))
	})

	It("saves each completed session once", func() {
		var saved []string
		m.onDone = func(_ session.SceneParameters, snap session.Snapshot) error {
			saved = append(saved, snap.ID)
			return nil
		}

		done := snapshotMsg{ID: "s1", Status: session.Completed, Content: "agent: hi"}
		m, _ = update(m, done)
		Expect(m.savedID).To(Equal("s1"))

		save := saveCmd(m.onDone, m.scene, session.Snapshot(done))
		Expect(save()).To(Equal(statusMsg("draft saved")))
		Expect(saved).To(Equal([]string{"s1"}))

		m, _ = update(m, done)
		Expect(m.savedID).To(Equal("s1"))
	})

	It("enters and submits an adjustment", func() {
		m, _ = update(m, snapshotMsg{ID: "s1", Status: session.Completed, Content: "agent: hi"})

		m, _ = update(m, runes("a"))
		Expect(m.adjusting).To(BeTrue())

		m, _ = update(m, runes("shorter"))
		Expect(m.input.Value()).To(Equal("shorter"))

		var cmd bubbletea.Cmd
		m, cmd = update(m, bubbletea.KeyMsg{Type: bubbletea.KeyEnter})
		Expect(m.adjusting).To(BeFalse())
		Expect(cmd).NotTo(BeNil())
		Expect(m.input.Value()).To(BeEmpty())
	})

	It("ignores an empty adjustment", func() {
		m, _ = update(m, snapshotMsg{ID: "s1", Status: session.Completed, Content: "agent: hi"})
		m, _ = update(m, runes("a"))

		var cmd bubbletea.Cmd
		m, cmd = update(m, bubbletea.KeyMsg{Type: bubbletea.KeyEnter})
		Expect(m.adjusting).To(BeTrue())
		Expect(cmd).To(BeNil())

		m, _ = update(m, bubbletea.KeyMsg{Type: bubbletea.KeyEsc})
		Expect(m.adjusting).To(BeFalse())
	})

	It("does not adjust while streaming", func() {
		m, _ = update(m, snapshotMsg{ID: "s1", Status: session.Streaming, Content: "agent: hi"})
		m, _ = update(m, runes("a"))
		Expect(m.adjusting).To(BeFalse())
	})

	It("only cancels a streaming session", func() {
		_, cmd := update(m, runes("x"))
		Expect(cmd).To(BeNil())

		m, _ = update(m, snapshotMsg{ID: "s1", Status: session.Streaming})
		_, cmd = update(m, runes("x"))
		Expect(cmd).NotTo(BeNil())
	})

	It("regenerates with the last starter", func() {
		var cmd bubbletea.Cmd
		m, cmd = update(m, runes("r"))
		Expect(cmd).NotTo(BeNil())
		Expect(cmd()).To(Equal(startedMsg{gen: m.gen, id: "s1"}))
		Expect(started).To(Equal(1))
	})

	It("ignores snapshots of another session", func() {
		m, _ = update(m, snapshotMsg{ID: "other", Status: session.Completed, Content: "agent: stale"})
		Expect(m.snap.Content).To(BeEmpty())
		Expect(m.savedID).To(BeEmpty())
	})

	It("never saves the session a restart superseded", func() {
		var saved []string
		m.onDone = func(_ session.SceneParameters, snap session.Snapshot) error {
			saved = append(saved, snap.ID)
			return nil
		}
		m, _ = update(m, snapshotMsg{ID: "s1", Status: session.Streaming, Content: "agent: old"})

		m, _ = update(m, runes("r"))
		Expect(m.activeID).To(BeEmpty())

		var cmd bubbletea.Cmd
		m, cmd = update(m, snapshotMsg{ID: "s1", Status: session.Completed, Content: "agent: old"})
		Expect(m.savedID).To(BeEmpty())
		Expect(m.snap.Status).To(Equal(session.Streaming))
		Expect(cmd).NotTo(BeNil())

		m, _ = update(m, startedMsg{gen: m.gen, id: "s2"})
		m, _ = update(m, snapshotMsg{ID: "s2", Status: session.Completed, Content: "agent: new"})
		Expect(m.savedID).To(Equal("s2"))
		Expect(m.snap.Content).To(Equal("agent: new"))

		Expect(saveCmd(m.onDone, m.scene, m.snap)()).To(Equal(statusMsg("draft saved")))
		Expect(saved).To(Equal([]string{"s2"}))
	})

	It("ignores the outcome of a superseded start", func() {
		m, _ = update(m, runes("r"))
		m, _ = update(m, startedMsg{gen: m.gen - 1, id: "s0"})
		Expect(m.activeID).To(BeEmpty())
	})

	It("quits on ctrl+c while typing an adjustment", func() {
		m, _ = update(m, snapshotMsg{ID: "s1", Status: session.Completed, Content: "agent: hi"})
		m, _ = update(m, runes("a"))

		m, _ = update(m, runes("q"))
		Expect(m.adjusting).To(BeTrue())
		Expect(m.input.Value()).To(Equal("q"))

		_, cmd := update(m, bubbletea.KeyMsg{Type: bubbletea.KeyCtrlC})
		Expect(cmd).NotTo(BeNil())
		Expect(cmd()).To(Equal(bubbletea.Quit()))
	})

	It("shows start errors", func() {
		m, _ = update(m, startedMsg{err: errors.New("creating request: bad target")})
		Expect(m.View()).To(ContainSubstring("bad target"))
	})

	It("switches the focused pane", func() {
		Expect(m.focus).To(Equal(paneContent))
		m, _ = update(m, bubbletea.KeyMsg{Type: bubbletea.KeyTab})
		Expect(m.focus).To(Equal(paneReasoning))
	})

	It("shows the failure reason", func() {
		m, _ = update(m, snapshotMsg{ID: "s1", Status: session.Failed, Err: errors.New("connection reset")})
		Expect(m.View()).To(ContainSubstring("connection reset"))
	})

	It("quits", func() {
		_, cmd := update(m, runes("q"))
		Expect(cmd()).To(Equal(bubbletea.Quit()))
	})
})

var _ = Describe("generate TUI model against a live session", func() {
	It("catches up on snapshots sent before the start reported", func() {
		rt := demoRuntime(llm.Demo(0))
		scene := session.SceneParameters{AIRole: "customer", MyRole: "agent"}
		m := newGenerateModel(context.Background(), rt.controller, scene, createStarter(rt.controller, scene, nil))

		var saved []session.Snapshot
		m.onDone = func(_ session.SceneParameters, snap session.Snapshot) error {
			saved = append(saved, snap)
			return nil
		}

		started := startCmd(m.ctx, m.last, m.gen)().(startedMsg)
		Expect(started.err).NotTo(HaveOccurred())
		rt.controller.Wait()

		m, cmd := update(m, started)
		Expect(m.snap.Status).To(Equal(session.Completed))
		Expect(m.snap.Content).To(Equal(demoDialog()))
		Expect(m.savedID).To(Equal(started.id))

		Expect(cmd()).To(Equal(statusMsg("draft saved")))
		Expect(saved).To(HaveLen(1))
	})
})

var _ = Describe("styleDialog", func() {
	It("keeps every line", func() {
		scene := session.SceneParameters{AIRole: "customer", MyRole: "agent"}
		out := styleDialog("agent: hi\ncustomer: hello\nnarration", scene)
		Expect(out).To(ContainSubstring("agent: hi"))
		Expect(out).To(ContainSubstring("customer: hello"))
		Expect(out).To(ContainSubstring("narration"))
	})

	It("returns empty for empty text", func() {
		Expect(styleDialog("", session.SceneParameters{})).To(BeEmpty())
	})
})

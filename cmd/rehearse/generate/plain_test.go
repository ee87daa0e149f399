package generatecmder

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/rehearse/api"
	"github.com/papercomputeco/rehearse/pkg/llm"
	"github.com/papercomputeco/rehearse/pkg/logger"
	"github.com/papercomputeco/rehearse/pkg/session"
)

// demoRuntime serves streamer on a local listener and returns a runtime whose
// controller targets it.
func demoRuntime(streamer llm.Streamer) *clientRuntime {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())

	server := api.NewServer(api.Config{}, streamer, logger.Nop())
	go func() {
		defer GinkgoRecover()
		_ = server.Serve(ln)
	}()

	ctrl := session.NewController(session.Config{Target: "http://" + ln.Addr().String()})
	DeferCleanup(func() {
		ctrl.Cancel()
		Expect(server.Shutdown()).To(Succeed())
	})

	return &clientRuntime{logger: logger.Nop(), controller: ctrl}
}

func demoDialog() string {
	var b strings.Builder
	for _, f := range llm.Demo(0).Fragments {
		if !f.Reasoning {
			b.WriteString(f.Text)
		}
	}
	return b.String()
}

var _ = Describe("plain rendering", func() {
	var (
		stdout bytes.Buffer
		stderr bytes.Buffer
	)

	BeforeEach(func() {
		stdout.Reset()
		stderr.Reset()
	})

	It("streams reasoning and dialog to separate writers", func() {
		rt := demoRuntime(llm.Demo(time.Millisecond))
		renderer := &plainRenderer{reasoning: &stderr, content: &stdout}

		snap, err := streamPlain(context.Background(), rt, renderer, createStarter(rt.controller, session.SceneParameters{}, nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Status).To(Equal(session.Completed))

		Expect(stdout.String()).To(Equal(demoDialog() + "\n"))
		Expect(stderr.String()).To(ContainSubstring("The trainee opens, "))
		Expect(stderr.String()).To(ContainSubstring("Keep turns alternating."))
		Expect(stderr.String()).NotTo(ContainSubstring("agent: Hello"))
		Expect(stderr.String()).To(ContainSubstring("7 frames"))
	})

	It("reports a failed session and keeps partial text", func() {
		rt := demoRuntime(&llm.Scripted{
			Fragments: []llm.Fragment{{Text: "agent: hi\n"}},
			Err:       errors.New("upstream reset"),
		})
		renderer := &plainRenderer{reasoning: &stderr, content: &stdout}

		snap, err := streamPlain(context.Background(), rt, renderer, createStarter(rt.controller, session.SceneParameters{}, nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Status).To(Equal(session.Failed))
		Expect(stdout.String()).To(ContainSubstring("agent: hi"))
		Expect(stderr.String()).To(ContainSubstring("generation failed"))
		Expect(snapshotErr(snap)).To(MatchError(ContainSubstring("generation failed")))
	})

	It("cancels the session when the context ends", func() {
		rt := demoRuntime(llm.Demo(time.Hour))
		renderer := &plainRenderer{reasoning: &stderr, content: &stdout}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		snap, err := streamPlain(ctx, rt, renderer, createStarter(rt.controller, session.SceneParameters{}, nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Status).To(Equal(session.Completed))
		Expect(snapshotErr(snap)).To(Succeed())
	})

	It("returns the start error", func() {
		rt := &clientRuntime{logger: logger.Nop(), controller: session.NewController(session.Config{Target: "http://127.0.0.1:1"})}
		boom := errors.New("bad form")

		_, err := streamPlain(context.Background(), rt, &plainRenderer{reasoning: &stderr, content: &stdout},
			func(context.Context) (string, error) { return "", boom })
		Expect(err).To(MatchError(boom))
	})
})

var _ = Describe("plainRenderer.write", func() {
	It("writes multi-line reasoning exactly as it arrived", func() {
		var reasoning, content bytes.Buffer
		p := &plainRenderer{reasoning: &reasoning, content: &content}

		p.write(session.Snapshot{Reasoning: "a long first line\nb\n"})
		p.write(session.Snapshot{Reasoning: "a long first line\nb\nc"})

		Expect(reasoning.String()).To(Equal("a long first line\nb\nc"))
		Expect(content.String()).To(BeEmpty())
	})

	It("ends the reasoning line before the first dialog text", func() {
		var reasoning, content bytes.Buffer
		p := &plainRenderer{reasoning: &reasoning, content: &content}

		p.write(session.Snapshot{Reasoning: "plan", Content: "agent: hi"})

		Expect(reasoning.String()).To(Equal("plan\n"))
		Expect(content.String()).To(Equal("agent: hi"))
	})
})

var _ = Describe("dimLines", func() {
	It("keeps blank lines and newlines untouched", func() {
		Expect(dimLines("\n\nx\n")).To(Equal("\n\nx\n"))
		Expect(dimLines("")).To(BeEmpty())
	})
})

var _ = Describe("summary", func() {
	It("mentions skipped frames", func() {
		line := summary(session.Snapshot{Status: session.Completed, Content: "abc", Stats: statsWith(3, 1)})
		Expect(line).To(ContainSubstring("3 frames"))
		Expect(line).To(ContainSubstring("1 malformed frames skipped"))
	})
})

package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/rehearse/pkg/llm"
	"github.com/papercomputeco/rehearse/pkg/logger"
	"github.com/papercomputeco/rehearse/pkg/session"
)

type upload struct {
	name string
	data []byte
}

func formRequest(path string, fields map[string]string, file *upload) *http.Request {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		Expect(w.WriteField(k, v)).To(Succeed())
	}
	if file != nil {
		part, err := w.CreateFormFile(session.FieldFile, file.name)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(file.data)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(w.Close()).To(Succeed())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// recordingStreamer remembers the last request and replays fragments.
type recordingStreamer struct {
	mu        sync.Mutex
	last      llm.Request
	fragments []llm.Fragment
}

func (r *recordingStreamer) Stream(_ context.Context, req llm.Request, fn func(llm.Fragment) error) error {
	r.mu.Lock()
	r.last = req
	r.mu.Unlock()

	for _, f := range r.fragments {
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (r *recordingStreamer) system() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last.System
}

var sceneFields = map[string]string{
	session.FieldSceneDescription: "late parcel refund",
	session.FieldSceneName:        "Late parcel",
	session.FieldSceneGoal:        "keep the customer",
	session.FieldAIRole:           "customer",
	session.FieldMyRole:           "agent",
	session.FieldOpeningLine:      "Hello, how can I help?",
	session.FieldInstructions:     "apologise first",
	session.FieldDialogTurns:      "4",
}

var _ = Describe("Server", func() {
	var (
		server   *Server
		streamer *recordingStreamer
	)

	BeforeEach(func() {
		streamer = &recordingStreamer{fragments: []llm.Fragment{
			{Reasoning: true, Text: "think"},
			{Text: "agent: hi\n"},
		}}
		server = NewServer(Config{ListenAddr: ":0"}, streamer, logger.Nop())
	})

	It("answers ping", func() {
		resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil), -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal(`"pong"`))
	})

	Describe("POST /ai_create_course", func() {
		It("streams typed frames", func() {
			resp, err := server.app.Test(formRequest(session.CreatePath, sceneFields, nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal(
				`data: {"type":"reasoning","text":"think"}` + "\n\n" +
					`data: {"type":"content","text":"agent: hi\n"}` + "\n\n",
			))
		})

		It("renders the scene into the system prompt", func() {
			resp, err := server.app.Test(formRequest(session.CreatePath, sceneFields, &upload{
				name: "policy.txt",
				data: []byte("refunds within 30 days"),
			}), -1)
			Expect(err).NotTo(HaveOccurred())
			_, err = io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())

			system := streamer.system()
			Expect(system).To(ContainSubstring("4-turn"))
			Expect(system).To(ContainSubstring("Scene name: Late parcel"))
			Expect(system).To(ContainSubstring("Reference material: refunds within 30 days"))
		})

		It("falls back to the configured turn count", func() {
			fields := map[string]string{session.FieldSceneName: "Late parcel"}
			resp, err := server.app.Test(formRequest(session.CreatePath, fields, nil), -1)
			Expect(err).NotTo(HaveOccurred())
			_, err = io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())

			Expect(streamer.system()).To(ContainSubstring("10-turn"))
		})

		It("rejects binary attachments", func() {
			resp, err := server.app.Test(formRequest(session.CreatePath, sceneFields, &upload{
				name: "scan.png",
				data: []byte{0x89, 'P', 'N', 'G', 0xff, 0xfe},
			}), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("unsupported file format"))
			Expect(streamer.system()).To(BeEmpty())
		})
	})

	Describe("POST /ai_adjust_course", func() {
		It("requires prior content", func() {
			resp, err := server.app.Test(formRequest(session.AdjustPath, sceneFields, nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("renders the prior dialog and adjustment into the prompt", func() {
			fields := map[string]string{
				session.FieldSceneName:    "Late parcel",
				session.FieldPriorContent: "agent: hi\ncustomer: hello",
				session.FieldAdjustment:   "angrier customer",
			}
			resp, err := server.app.Test(formRequest(session.AdjustPath, fields, nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			_, err = io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())

			system := streamer.system()
			Expect(system).To(ContainSubstring("Existing dialog:\nagent: hi\ncustomer: hello"))
			Expect(system).To(ContainSubstring("Requested adjustment:\nangrier customer"))
		})
	})
})

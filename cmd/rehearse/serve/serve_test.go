package servecmder

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/rehearse/pkg/llm"
	"github.com/papercomputeco/rehearse/pkg/logger"
)

// withGlobals adds the persistent flags the root command normally provides.
func withGlobals(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().BoolP("debug", "d", false, "")
	cmd.Flags().String("config-dir", "", "")
	return cmd
}

var _ = Describe("serve command", func() {
	var configDir string

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
	})

	loadWith := func(args ...string) *serveCommander {
		cmder := &serveCommander{}
		cmd := withGlobals(NewServeCmd())
		Expect(cmd.Flags().Parse(append([]string{"--config-dir", configDir}, args...))).To(Succeed())
		Expect(cmder.load(cmd)).To(Succeed())
		return cmder
	}

	It("loads defaults", func() {
		c := loadWith()
		Expect(c.listen).To(Equal(":5000"))
		Expect(c.model).To(Equal("deepseek-r1"))
		Expect(c.apiKeyEnv).To(Equal("DASHSCOPE_API_KEY"))
		Expect(c.turns).To(Equal(10))
		Expect(c.timeout).To(Equal(10 * time.Minute))
	})

	It("prefers flags over the config file", func() {
		Expect(os.WriteFile(filepath.Join(configDir, "config.toml"),
			[]byte("[server]\nmodel = \"qwen-plus\"\nlisten = \":7000\"\n"), 0o600)).To(Succeed())

		c := loadWith("--listen", ":9000", "--turns", "0")
		Expect(c.listen).To(Equal(":9000"))
		Expect(c.model).To(Equal("qwen-plus"))
		Expect(c.turns).To(Equal(1))
	})

	It("rejects a malformed timeout", func() {
		cmder := &serveCommander{}
		cmd := withGlobals(NewServeCmd())
		Expect(cmd.Flags().Parse([]string{"--config-dir", configDir, "--timeout", "soon"})).To(Succeed())
		Expect(cmder.load(cmd)).To(MatchError(ContainSubstring("invalid timeout")))
	})

	It("serves the scripted dialog in demo mode", func() {
		c := &serveCommander{demo: true, logger: logger.Nop()}
		streamer, err := c.newStreamer()
		Expect(err).NotTo(HaveOccurred())
		Expect(streamer).To(BeAssignableToTypeOf(&llm.Scripted{}))
	})

	It("builds an upstream client", func() {
		c := &serveCommander{model: "deepseek-r1", upstream: "http://localhost:1", logger: logger.Nop()}
		streamer, err := c.newStreamer()
		Expect(err).NotTo(HaveOccurred())
		Expect(streamer).To(BeAssignableToTypeOf(&llm.OpenAI{}))
	})

	It("requires a model", func() {
		c := &serveCommander{upstream: "http://localhost:1", logger: logger.Nop()}
		_, err := c.newStreamer()
		Expect(err).To(MatchError(ContainSubstring("creating upstream client")))
	})
})

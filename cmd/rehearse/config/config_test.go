package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/rehearse/cmd/rehearse/config"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := configcmder.NewConfigCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "rehearse-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .rehearse dir so the manager picks it up
		err = os.MkdirAll(filepath.Join(tmpDir, ".rehearse"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			out, err := execute("set", "client.target", "http://trainer:5000")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("client.target"))

			_, err = os.Stat(filepath.Join(tmpDir, ".rehearse", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects unknown keys", func() {
			_, err := execute("set", "invalid_key", "value")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("requires exactly two arguments", func() {
			_, err := execute("set", "client.target")
			Expect(err).To(HaveOccurred())
		})

		It("rejects a non-numeric turn count", func() {
			_, err := execute("set", "generation.dialog_turns", "many")
			Expect(err).To(HaveOccurred())
		})

		It("rejects a malformed timeout", func() {
			_, err := execute("set", "client.timeout", "soon")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			_, err := execute("set", "server.model", "qwen-plus")
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("get", "server.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("qwen-plus"))
		})

		It("falls back to the default without a config file", func() {
			out, err := execute("get", "generation.dialog_turns")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("10"))
		})

		It("rejects unknown keys", func() {
			_, err := execute("get", "invalid_key")
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			_, err := execute("get")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			out, err := execute("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring(filepath.Join(".rehearse", "config.toml")))
			Expect(out).To(ContainSubstring("client.target"))
			Expect(out).To(ContainSubstring("log.telemetry"))
		})

		It("shows set values", func() {
			_, err := execute("set", "client.timeout", "5m")
			Expect(err).NotTo(HaveOccurred())

			out, err := execute("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring(`"5m"`))
		})

		It("rejects extra arguments", func() {
			_, err := execute("list", "extra")
			Expect(err).To(HaveOccurred())
		})
	})
})

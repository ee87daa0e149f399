package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/rehearse/pkg/dotdir"
)

// isolate moves into an empty working directory with an empty HOME so no real
// .rehearse directory is discovered.
func isolate(tmpDir string) string {
	emptyDir := filepath.Join(tmpDir, "empty")
	Expect(os.MkdirAll(emptyDir, 0o755)).To(Succeed())

	origDir, err := os.Getwd()
	Expect(err).NotTo(HaveOccurred())
	Expect(os.Chdir(emptyDir)).To(Succeed())
	DeferCleanup(func() { os.Chdir(origDir) })

	origHome := os.Getenv("HOME")
	Expect(os.Setenv("HOME", emptyDir)).To(Succeed())
	DeferCleanup(func() { os.Setenv("HOME", origHome) })

	return emptyDir
}

var _ = Describe("dotdir", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())

		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("Target", func() {
		It("creates the override directory if it doesn't exist", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("returns the override dir even when a local .rehearse dir exists", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, ".rehearse"), 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tmpDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			overrideDir := filepath.Join(tmpDir, "override")
			result, err := m.Target(overrideDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(overrideDir))
		})

		It("returns the local .rehearse dir when no override is provided", func() {
			local := filepath.Join(tmpDir, ".rehearse")
			Expect(os.Mkdir(local, 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tmpDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("returns the home .rehearse dir when it exists", func() {
			home := isolate(tmpDir)
			Expect(os.Mkdir(filepath.Join(home, ".rehearse"), 0o755)).To(Succeed())

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(home, ".rehearse")))
		})

		It("returns empty string when no directory exists", func() {
			home := isolate(tmpDir)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(BeEmpty())

			_, err = os.Stat(filepath.Join(home, ".rehearse"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Describe("Create", func() {
		It("creates the home .rehearse dir when none exists", func() {
			home := isolate(tmpDir)

			result, err := m.Create("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(home, ".rehearse")))

			info, err := os.Stat(result)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})
	})

	Describe("Path", func() {
		It("joins relative names onto the resolved directory", func() {
			dir := filepath.Join(tmpDir, "override")
			result, err := m.Path(dir, "rehearse.log")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(dir, "rehearse.log")))
		})

		It("returns absolute names unchanged", func() {
			abs := filepath.Join(tmpDir, "elsewhere.log")
			result, err := m.Path("", abs)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(abs))
		})

		It("returns empty for an empty name", func() {
			result, err := m.Path("", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(BeEmpty())
		})

		It("creates the home directory when none exists", func() {
			home := isolate(tmpDir)
			result, err := m.Path("", "rehearse.log")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(home, ".rehearse", "rehearse.log")))
		})
	})
})

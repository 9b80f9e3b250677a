package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/dotdir"
)

var _ = Describe("Manager", func() {
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

		It("returns an existing override directory without error", func() {
			result, err := m.Target(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(tmpDir))
		})
	})
})

var _ = Describe("EntityState", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-entity-test-*")
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns nil when no entity state exists", func() {
		state, err := m.LoadEntityState(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("round-trips entity and speaker", func() {
		saved := &dotdir.EntityState{Entity: "alice", Speaker: "bob"}
		Expect(m.SaveEntityState(saved, tmpDir)).To(Succeed())

		loaded, err := m.LoadEntityState(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Entity).To(Equal("alice"))
		Expect(loaded.Speaker).To(Equal("bob"))
	})

	It("rejects saving a nil state", func() {
		Expect(m.SaveEntityState(nil, tmpDir)).To(HaveOccurred())
	})

	It("clears the selection", func() {
		Expect(m.SaveEntityState(&dotdir.EntityState{Entity: "alice"}, tmpDir)).To(Succeed())
		Expect(m.ClearEntityState(tmpDir)).To(Succeed())

		state, err := m.LoadEntityState(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("tolerates clearing when nothing is saved", func() {
		Expect(m.ClearEntityState(tmpDir)).To(Succeed())
	})
})

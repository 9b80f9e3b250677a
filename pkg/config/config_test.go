package config

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Configer", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "strata-config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns defaults when no config file exists", func() {
			cfger, err := NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Engine.BudgetMax).To(Equal(defaultBudgetMax))
			Expect(cfg.Summarizer.Provider).To(Equal("ollama"))
		})

		It("merges file values over defaults", func() {
			content := "[engine]\nbudget_max = 12345\n"
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0o600)).To(Succeed())

			cfger, err := NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Engine.BudgetMax).To(Equal(12345))
			// Unset fields fall back to defaults.
			Expect(cfg.Engine.Speaker).To(Equal("user"))
			Expect(cfg.API.Listen).NotTo(BeEmpty())
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		It("round-trips a string value through the file", func() {
			cfger, err := NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("summarizer.provider", "anthropic")).To(Succeed())

			reloaded, err := NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			value, err := reloaded.GetConfigValue("summarizer.provider")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("anthropic"))
		})

		It("parses numeric values", func() {
			cfger, err := NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("engine.l1_threshold", "7")).To(Succeed())

			value, err := cfger.GetConfigValue("engine.l1_threshold")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("7"))
		})

		It("rejects non-numeric values for numeric keys", func() {
			cfger, err := NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("engine.budget_max", "lots")).To(HaveOccurred())
		})

		It("rejects unknown keys", func() {
			cfger, err := NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("engine.bogus", "1")).To(HaveOccurred())
			_, err = cfger.GetConfigValue("engine.bogus")
			Expect(err).To(HaveOccurred())
		})

		It("splits broker lists on commas", func() {
			cfger, err := NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("eventstream.brokers", "a:9092, b:9092")).To(Succeed())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.EventStream.Brokers).To(Equal([]string{"a:9092", "b:9092"}))
		})
	})

	Describe("ValidConfigKeys", func() {
		It("covers every registered key exactly once", func() {
			keys := ValidConfigKeys()
			Expect(keys).To(HaveLen(len(configKeys)))

			seen := make(map[string]bool)
			for _, k := range keys {
				Expect(seen[k]).To(BeFalse(), "duplicate key %s", k)
				seen[k] = true
				Expect(IsValidConfigKey(k)).To(BeTrue())
			}
		})
	})

	Describe("ParseConfigTOML", func() {
		It("rejects unsupported versions", func() {
			_, err := ParseConfigTOML([]byte("version = 99\n"))
			Expect(err).To(HaveOccurred())
		})

		It("rejects malformed TOML", func() {
			_, err := ParseConfigTOML([]byte("[engine\n"))
			Expect(err).To(HaveOccurred())
		})
	})
})

package rehearsecmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	rehearsecmder "github.com/papercomputeco/rehearse/cmd/rehearse"
)

var _ = Describe("NewRehearseCmd", func() {
	It("registers every subcommand", func() {
		cmd := rehearsecmder.NewRehearseCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("serve", "generate", "adjust", "draft", "config", "version"))
	})

	It("carries the global flags", func() {
		cmd := rehearsecmder.NewRehearseCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})

package profile_test

import (
	"testing"

	"github.com/gianix81/payAnalyst/internal/profile"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestProfile(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Profile Suite")
}

var _ = Describe("UserProfile", func() {
	It("should require first and last name", func() {
		Expect(profile.UserProfile{FirstName: "Maria"}.Validate()).To(HaveOccurred())
		Expect(profile.UserProfile{FirstName: "Maria", LastName: "Rossi"}.Validate()).To(Succeed())
	})

	It("should reject a malformed date of birth or email", func() {
		p := profile.UserProfile{FirstName: "Maria", LastName: "Rossi", DateOfBirth: "22/03/1985"}
		Expect(p.Validate()).To(HaveOccurred())
		p.DateOfBirth = "1985-03-22"
		p.Email = "not-an-email"
		Expect(p.Validate()).To(HaveOccurred())
	})

	It("should merge non-empty fields but never the role or uid", func() {
		base := profile.UserProfile{FirstName: "Maria", LastName: "Rossi", Role: profile.RoleUser, UID: "u1"}
		merged := base.Merge(profile.UserProfile{PlaceOfBirth: "Milano", Role: profile.RoleAdmin, UID: "u2"})
		Expect(merged.PlaceOfBirth).To(Equal("Milano"))
		Expect(merged.FirstName).To(Equal("Maria"))
		Expect(merged.Role).To(Equal(profile.RoleUser))
		Expect(merged.UID).To(Equal("u1"))
		Expect(merged.FullName()).To(Equal("Maria Rossi"))
	})
})

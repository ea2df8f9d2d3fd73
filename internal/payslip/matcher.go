package payslip

import (
	"strings"

	"github.com/gianix81/payAnalyst/internal/profile"
)

// MismatchAlert is shown when an extracted payslip does not belong to the profile.
const MismatchAlert = "Attenzione: I dati anagrafici sulla busta paga non corrispondono al tuo profilo. Questa analisi è temporanea e non verrà salvata nell'archivio."

type Decision struct {
	Archive bool
	Reason  string
}

const (
	ReasonNameMatch  = "name_match"
	ReasonAdmin      = "admin"
	ReasonNoProfile  = "no_profile"
	ReasonNameDiffer = "name_mismatch"
)

// Match decides whether p may be archived for the given profile. Names are compared
// exactly after trimming surrounding whitespace and folding case; hyphens, extra
// words and diacritics are not normalised.
func Match(owner *profile.UserProfile, p Payslip) Decision {
	if owner == nil {
		return Decision{Archive: false, Reason: ReasonNoProfile}
	}
	if owner.IsAdmin() {
		return Decision{Archive: true, Reason: ReasonAdmin}
	}
	if sameName(owner.FirstName, p.Employee.FirstName) && sameName(owner.LastName, p.Employee.LastName) {
		return Decision{Archive: true, Reason: ReasonNameMatch}
	}
	return Decision{Archive: false, Reason: ReasonNameDiffer}
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

package assistant

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gianix81/payAnalyst/internal/payslip"
)

//go:embed taxtables.csv
var embeddedTaxTables string

// LoadTaxTables reads the municipal surtax table from path, falling back to the
// excerpt bundled with the binary when path is empty.
func LoadTaxTables(path string) (string, error) {
	if path == "" {
		return embeddedTaxTables, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read tax tables: %w", err)
	}
	return string(data), nil
}

const advisorPreamble = "Sei un consulente del lavoro virtuale ed esperto dei contratti collettivi nazionali (CCNL) italiani e della normativa sul lavoro. " +
	"Rispondi in modo preciso, dettagliato e professionale. Ricorda all'utente che le tue risposte hanno solo valore informativo, " +
	"non sostituiscono il parere di un professionista abilitato e che per certezze legali e fiscali deve rivolgersi a un consulente del lavoro o a un CAF. " +
	"Non inventare dati: se la risposta non è nei dati forniti o nelle tue conoscenze, dillo chiaramente."

// Context is what the assistant grounds its answers on. At most one of Compare,
// Focused and Archive is used, in that order of precedence.
type Context struct {
	Compare          *[2]payslip.Payslip
	Focused          *payslip.Payslip
	Archive          []payslip.Payslip
	HasAttachment    bool
	IncludeTaxTables bool
}

// Key identifies the payslips a contextual chat is about. Archive chats share the
// empty key.
func (c Context) Key() string {
	switch {
	case c.Compare != nil:
		return "compare:" + c.Compare[0].ID + "," + c.Compare[1].ID
	case c.Focused != nil:
		return "focus:" + c.Focused.ID
	default:
		return ""
	}
}

func indent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// BuildInstruction assembles the system instruction for one question.
func BuildInstruction(c Context, taxTables string) string {
	var b strings.Builder
	b.WriteString(advisorPreamble)

	switch {
	case c.Compare != nil:
		b.WriteString("\nL'utente sta confrontando queste due buste paga, usale come contesto principale delle tue risposte:\n")
		fmt.Fprintf(&b, "Busta Paga 1: %s\nBusta Paga 2: %s", indent(c.Compare[0]), indent(c.Compare[1]))
	case c.Focused != nil:
		b.WriteString("\nL'utente sta visualizzando questa busta paga, usala come contesto principale delle tue risposte:\n")
		b.WriteString(indent(c.Focused))
	case len(c.Archive) > 0:
		b.WriteString("\nQuesto è l'archivio delle buste paga dell'utente a tua disposizione:\n")
		b.WriteString(indent(c.Archive))
	}

	if c.HasAttachment {
		b.WriteString("\nL'utente ha allegato un documento: usalo come contesto principale se la domanda sembra riferirsi ad esso.")
	}

	if c.IncludeTaxTables && taxTables != "" {
		b.WriteString("\nL'utente chiede di usare come riferimento la tabella delle addizionali comunali riportata sotto per le domande su questo argomento.\n\n")
		b.WriteString("--- INIZIO DOCUMENTO ADDIZIONALI COMUNALI ---\n")
		b.WriteString(strings.TrimSpace(taxTables))
		b.WriteString("\n--- FINE DOCUMENTO ADDIZIONALI COMUNALI ---")
	}
	return b.String()
}

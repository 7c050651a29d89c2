package cmd

import (
	"github.com/spf13/cobra"

	"github.com/illarion/keepvault/internal/crypto"
	"github.com/illarion/keepvault/internal/vault"
)

// recordFlags binds the editable record fields to command flags.
type recordFlags struct {
	name       string
	username   string
	password   string
	url        string
	cardholder string
	number     string
	expiry     string
	cvv        string
	pin        string
	notes      string
	ask        bool
}

func (f *recordFlags) register(cmd *cobra.Command, kind vault.Kind) {
	fs := cmd.Flags()
	fs.StringVar(&f.notes, "notes", "", "free-form notes")

	if kind == "" || kind == vault.KindCredential {
		fs.StringVarP(&f.username, "username", "u", "", "login name")
		fs.StringVarP(&f.password, "password", "p", "", "password (prefer --ask)")
		fs.StringVar(&f.url, "url", "", "site or service address")
	}
	if kind == "" || kind == vault.KindPaymentCard {
		fs.StringVar(&f.cardholder, "cardholder", "", "name on the card")
		fs.StringVar(&f.number, "number", "", "card number (prefer --ask)")
		fs.StringVar(&f.expiry, "expiry", "", "expiry date, e.g. 04/29")
		fs.StringVar(&f.cvv, "cvv", "", "card security code (prefer --ask)")
		fs.StringVar(&f.pin, "pin", "", "card PIN (prefer --ask)")
	}
	if kind != vault.KindNote {
		fs.BoolVarP(&f.ask, "ask", "a", false, "prompt for secret fields without echo")
	}
	if kind == "" {
		fs.StringVar(&f.name, "name", "", "new record name")
	}
}

// apply copies every flag the user set into rec.
func (f *recordFlags) apply(cmd *cobra.Command, rec *vault.Record) {
	fs := cmd.Flags()
	set := func(flag string, dst *string, value string) {
		if fs.Changed(flag) {
			*dst = value
		}
	}

	set("name", &rec.Name, f.name)
	set("username", &rec.Username, f.username)
	set("password", &rec.Password, f.password)
	set("url", &rec.URL, f.url)
	set("cardholder", &rec.Cardholder, f.cardholder)
	set("number", &rec.Number, f.number)
	set("expiry", &rec.Expiry, f.expiry)
	set("cvv", &rec.CVV, f.cvv)
	set("pin", &rec.PIN, f.pin)
	set("notes", &rec.Notes, f.notes)
}

type secretPrompt struct {
	prompt string
	dst    *string
}

// prompt reads the secret fields of rec's kind from the terminal when --ask
// is set. Empty input keeps the current value.
func (f *recordFlags) prompt(rec *vault.Record) error {
	if !f.ask {
		return nil
	}

	var prompts []secretPrompt
	switch rec.Kind {
	case vault.KindCredential:
		prompts = []secretPrompt{{"Password: ", &rec.Password}}
	case vault.KindPaymentCard:
		prompts = []secretPrompt{
			{"Card number: ", &rec.Number},
			{"CVV: ", &rec.CVV},
			{"PIN (empty to skip): ", &rec.PIN},
		}
	}

	for _, p := range prompts {
		value, err := readPassword(p.prompt)
		if err != nil {
			return err
		}
		if len(value) > 0 {
			*p.dst = string(value)
		}
		crypto.ClearBytes(value)
	}
	return nil
}

package portal

import (
	"fmt"
	"strings"
	"time"
)

// Strategy is one way of locating an element. Strategies are tried in
// declaration order: semantic (role/name) first, nearby text second,
// raw structural selector last. Only exhausting the whole list counts
// as a failed interaction.
type Strategy struct {
	Name     string
	Selector string
}

// clickAny tries each strategy until one click succeeds.
func clickAny(f Frame, strategies []Strategy, timeout time.Duration) error {
	var failures []string
	for _, s := range strategies {
		if err := f.Click(s.Selector, timeout); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", s.Name, err))
			continue
		}
		return nil
	}
	return fmt.Errorf("all click strategies exhausted: %s", strings.Join(failures, "; "))
}

// fillAny tries each strategy until one fill succeeds.
func fillAny(f Frame, strategies []Strategy, value string, timeout time.Duration) error {
	var failures []string
	for _, s := range strategies {
		if err := f.Fill(s.Selector, value, timeout); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", s.Name, err))
			continue
		}
		return nil
	}
	return fmt.Errorf("all fill strategies exhausted: %s", strings.Join(failures, "; "))
}

// Strategy lists per interaction. Selectors are Playwright selector
// strings; "role=" and "text=" carry the semantic intent, the CSS
// fallbacks match the markup the portal has shipped for years.

var loginUserStrategies = []Strategy{
	{"by label", `input[name="usuario"]`},
	{"by nearby text", `:text("Usuário") >> xpath=following::input[1]`},
	{"first text input", `form input[type="text"]`},
}

var loginPasswordStrategies = []Strategy{
	{"by label", `input[name="senha"]`},
	{"by type", `input[type="password"]`},
}

var loginSubmitStrategies = []Strategy{
	{"by role", `role=button[name="Entrar"]`},
	{"by text", `text=Entrar`},
	{"submit input", `input[type="submit"]`},
}

var paymentMenuStrategies = []Strategy{
	{"by role", `role=link[name="Pagamento"]`},
	{"by text", `text=Pagamento`},
	{"menu anchor", `a[href*="pagamento"]`},
}

var payAfrmmActionStrategies = []Strategy{
	{"by role", `role=link[name="Pagar AFRMM"]`},
	{"by text", `text=Pagar AFRMM`},
	{"action anchor", `a[href*="pagar"]`},
}

var ceFieldStrategies = []Strategy{
	{"by name", `input[name="numeroCE"]`},
	{"by nearby text", `:text("CE") >> xpath=following::input[1]`},
	{"first form input", `form input[type="text"]`},
}

var ceSearchStrategies = []Strategy{
	{"by role", `role=button[name="Consultar"]`},
	{"by text", `text=Consultar`},
	{"submit input", `input[type="submit"]`},
}

var bankCodeStrategies = []Strategy{
	{"by name", `input[name="banco"]`},
	{"by nearby text", `:text("Banco") >> xpath=following::input[1]`},
}

var branchStrategies = []Strategy{
	{"by name", `input[name="agencia"]`},
	{"by nearby text", `:text("Agência") >> xpath=following::input[1]`},
}

var accountStrategies = []Strategy{
	{"by name", `input[name="contaCorrente"]`},
	{"by nearby text", `:text("Conta") >> xpath=following::input[1]`},
}

var payButtonStrategies = []Strategy{
	{"by role", `role=button[name="Pagar"]`},
	{"by text", `text=Pagar`},
	{"named input", `input[name="btnPagar"]`},
}

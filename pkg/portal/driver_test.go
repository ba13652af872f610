package portal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightops/afrmm/pkg/money"
)

// fakeFrame is a scriptable frame whose text and content are supplied
// by the simulation for the current screen.
type fakeFrame struct {
	name    string
	text    func() string
	content func() string
	onClick func(selector string) error
	onFill  func(selector, value string) error
}

func (f *fakeFrame) Name() string { return f.name }

func (f *fakeFrame) Content() (string, error) { return f.content(), nil }

func (f *fakeFrame) InnerText() (string, error) { return f.text(), nil }

func (f *fakeFrame) Click(selector string, _ time.Duration) error {
	return f.onClick(selector)
}

func (f *fakeFrame) Fill(selector, value string, _ time.Duration) error {
	return f.onFill(selector, value)
}

// portalSim emulates the portal's screen flow. Screens advance on the
// clicks the real portal reacts to; everything is rendered through a
// single frame because the driver must not care which frame carries
// which screen.
type portalSim struct {
	stage       int
	fills       map[string]string
	payClicks   int
	dialogArmed bool
	pdfData     []byte
}

const simValueScreen = `
<html><body>
Banco: Agência: Conta:
<table>
<tr><td>Valor a pagar</td><td>R$ 894,60</td></tr>
<tr><td>Saldo</td><td>R$ 10.000,00</td></tr>
</table>
<input name="btnPagar" value="Pagar">
</body></html>`

const simSuccessScreen = `
<html><body>
<p>Pagamento efetuado com sucesso</p>
<table><tr><td>Valor</td><td>R$ 894,60</td></tr></table>
</body></html>`

func newPortalSim() *portalSim {
	return &portalSim{fills: make(map[string]string)}
}

func (s *portalSim) screenText() string {
	switch s.stage {
	case 0:
		return "Usuário: Senha:"
	case 1:
		return "Menu principal\nPagamento"
	case 2:
		return "Pagamento\nPagar AFRMM"
	case 3:
		return "Número do CE:"
	case 4:
		return "Banco: Agência: Conta: Valor a pagar: R$ 894,60 Saldo: R$ 10.000,00 Pagar"
	default:
		return "Pagamento efetuado com sucesso"
	}
}

func (s *portalSim) screenContent() string {
	switch s.stage {
	case 4:
		return simValueScreen
	case 5:
		return simSuccessScreen
	default:
		return "<html><body>" + s.screenText() + "</body></html>"
	}
}

func (s *portalSim) click(selector string) error {
	switch s.stage {
	case 0, 1, 2, 3:
		s.stage++
	case 4:
		s.payClicks++
		if s.dialogArmed {
			s.stage = 5
		}
	}
	return nil
}

func (s *portalSim) fill(selector, value string) error {
	s.fills[selector] = value
	return nil
}

func (s *portalSim) page() *fakePage {
	frame := &fakeFrame{
		name:    "principal",
		text:    s.screenText,
		content: s.screenContent,
		onClick: s.click,
		onFill:  s.fill,
	}
	return &fakePage{frames: []Frame{frame}, sim: s}
}

type fakePage struct {
	frames []Frame
	sim    *portalSim
	pdfErr error
}

func (p *fakePage) Frames() []Frame { return p.frames }

func (p *fakePage) SetDialogPolicy(accept bool) { p.sim.dialogArmed = accept }

func (p *fakePage) PDF() ([]byte, error) {
	if p.pdfErr != nil {
		return nil, p.pdfErr
	}
	return p.sim.pdfData, nil
}

func testRequest() Request {
	return Request{
		CENumber:  "152305123456789",
		AmountDue: money.Centavos(89460),
		BankCode:  "001",
		Branch:    "3399",
		Account:   "12345-6",
	}
}

func testConfig(authorize bool) Config {
	return Config{
		Username:           "operator",
		Password:           "secret",
		StepTimeout:        time.Second,
		StepAttempts:       2,
		AuthorizePayDialog: authorize,
	}
}

func TestDriver_Execute_FullSequence(t *testing.T) {
	sim := newPortalSim()
	driver := NewDriver(sim.page(), testConfig(true), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	outcome, err := driver.Execute(ctx, testRequest())
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.False(t, outcome.AlreadyPaid)
	assert.Equal(t, 1, sim.payClicks, "pay must be clicked exactly once")
	assert.True(t, sim.dialogArmed, "dialog acceptance must be armed before the pay click")
	assert.Equal(t, money.Centavos(89460), outcome.AmountPaid)
	require.NotNil(t, outcome.Balance)
	assert.Equal(t, money.Centavos(1000000), *outcome.Balance)
	assert.NotEmpty(t, outcome.ReceiptHTML, "success screen HTML is the receipt")
	assert.Contains(t, outcome.TerminalText, "sucesso")

	// Credentials and bank details went through the fill strategies.
	assert.Contains(t, sim.fills, `input[name="usuario"]`)
	assert.Contains(t, sim.fills, `input[name="senha"]`)
	assert.Equal(t, "001", sim.fills[`input[name="banco"]`])
	assert.Equal(t, "3399", sim.fills[`input[name="agencia"]`])
	assert.Equal(t, "12345-6", sim.fills[`input[name="contaCorrente"]`])
}

func TestDriver_Execute_UnauthorizedDialogStopsBeforePay(t *testing.T) {
	sim := newPortalSim()
	driver := NewDriver(sim.page(), testConfig(false), nil)

	_, err := driver.Execute(context.Background(), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDialogNotAuthorized)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepConfirmDialog, stepErr.Step)

	assert.Equal(t, 0, sim.payClicks, "no pay click without authorization")
	assert.False(t, sim.dialogArmed, "dialog acceptance must never be armed implicitly")
}

func TestDriver_Execute_AlreadyPaidOnValueScreen(t *testing.T) {
	sim := newPortalSim()

	// Replace the value screen with the portal's settled message.
	frame := &fakeFrame{
		name: "principal",
		text: func() string {
			if sim.stage == 4 {
				return "CE já liquidado"
			}
			return sim.screenText()
		},
		content: sim.screenContent,
		onClick: sim.click,
		onFill:  sim.fill,
	}
	page := &fakePage{frames: []Frame{frame}, sim: sim}
	driver := NewDriver(page, testConfig(true), nil)

	outcome, err := driver.Execute(context.Background(), testRequest())
	require.NoError(t, err)

	assert.True(t, outcome.AlreadyPaid)
	assert.False(t, outcome.Success)
	assert.Equal(t, 0, sim.payClicks, "settled CE must never reach the pay click")
}

func TestDriver_Execute_TerminalMarkerNeverAppears(t *testing.T) {
	sim := newPortalSim()

	// The pay click lands but the portal never renders the outcome.
	frame := &fakeFrame{
		name: "principal",
		text: func() string {
			if sim.stage == 5 {
				return "Processando..."
			}
			return sim.screenText()
		},
		content: sim.screenContent,
		onClick: sim.click,
		onFill:  sim.fill,
	}
	page := &fakePage{frames: []Frame{frame}, sim: sim}
	driver := NewDriver(page, testConfig(true), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := driver.Execute(ctx, testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTerminalNotObserved)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepObserveTerminal, stepErr.Step)
}

func TestDriver_Execute_ReentryGuardSkipsSecondPayClick(t *testing.T) {
	sim := newPortalSim()

	// The success marker is already on screen when the driver reaches
	// the pay step: an unexpectedly re-entered state. The driver must
	// observe it instead of clicking Pay again.
	frame := &fakeFrame{
		name: "principal",
		text: func() string {
			if sim.stage == 4 {
				return "Banco: Pagamento efetuado com sucesso"
			}
			return sim.screenText()
		},
		content: sim.screenContent,
		onClick: sim.click,
		onFill:  sim.fill,
	}
	page := &fakePage{frames: []Frame{frame}, sim: sim}
	driver := NewDriver(page, testConfig(true), nil)

	outcome, err := driver.Execute(context.Background(), testRequest())
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, 0, sim.payClicks, "re-entered success state must not trigger another pay click")
}

func TestDriver_StepRetryIsBounded(t *testing.T) {
	sim := newPortalSim()
	attempts := 0

	frame := &fakeFrame{
		name:    "principal",
		text:    sim.screenText,
		content: sim.screenContent,
		onClick: sim.click,
		onFill: func(selector, value string) error {
			attempts++
			return assert.AnError
		},
	}
	page := &fakePage{frames: []Frame{frame}, sim: sim}
	driver := NewDriver(page, testConfig(true), nil)

	_, err := driver.Execute(context.Background(), testRequest())
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepAuthenticate, stepErr.Step)

	// 2 attempts x 3 username strategies; the step never restarts the
	// whole sequence.
	assert.Equal(t, 6, attempts)
}

func TestFindInAnyFrame(t *testing.T) {
	mk := func(name, text string) Frame {
		return &fakeFrame{
			name:    name,
			text:    func() string { return text },
			content: func() string { return text },
			onClick: func(string) error { return nil },
			onFill:  func(string, string) error { return nil },
		}
	}
	sim := newPortalSim()
	page := &fakePage{
		frames: []Frame{
			mk("topo", "cabeçalho"),
			mk("menu", "Consulta | Pagamento | Sair"),
			mk("corpo", "Bem-vindo"),
		},
		sim: sim,
	}

	frame, ok := FindInAnyFrame(page, FrameWithText("pagamento"))
	require.True(t, ok)
	assert.Equal(t, "menu", frame.Name())

	_, ok = FindInAnyFrame(page, FrameWithText("inexistente"))
	assert.False(t, ok)
}

package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightops/afrmm/pkg/money"
)

const valueScreenHTML = `
<html><body>
<table>
<tr><td>Número do CE</td><td>152305123456789</td></tr>
<tr><td>Valor a pagar</td><td>R$ 894,60</td></tr>
<tr><td>Saldo disponível</td><td>R$ 10.234,56</td></tr>
</table>
</body></html>`

func TestExtractLabeledAmount(t *testing.T) {
	amount, err := ExtractLabeledAmount(valueScreenHTML, "valor a pagar")
	require.NoError(t, err)
	assert.Equal(t, money.Centavos(89460), amount)

	balance, err := ExtractLabeledAmount(valueScreenHTML, "saldo")
	require.NoError(t, err)
	assert.Equal(t, money.Centavos(1023456), balance)
}

func TestExtractLabeledAmount_AccentInsensitiveLabel(t *testing.T) {
	amount, err := ExtractLabeledAmount(valueScreenHTML, "saldo disponivel")
	require.NoError(t, err)
	assert.Equal(t, money.Centavos(1023456), amount)
}

func TestExtractLabeledAmount_LabelAndValueInOneCell(t *testing.T) {
	html := `<html><body><p>Valor a pagar: 1.234,56</p></body></html>`
	amount, err := ExtractLabeledAmount(html, "valor a pagar")
	require.NoError(t, err)
	assert.Equal(t, money.Centavos(123456), amount)
}

func TestExtractLabeledAmount_MissingLabel(t *testing.T) {
	_, err := ExtractLabeledAmount(valueScreenHTML, "multa")
	assert.Error(t, err)
}

func TestExtractLabeledAmount_IgnoresScripts(t *testing.T) {
	html := `<html><body>
	<script>var saldo = "999,99";</script>
	<p>Saldo</p><p>1,00</p>
	</body></html>`
	amount, err := ExtractLabeledAmount(html, "saldo")
	require.NoError(t, err)
	assert.Equal(t, money.Centavos(100), amount)
}

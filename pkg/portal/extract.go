package portal

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/freightops/afrmm/pkg/money"
)

// amountPattern matches pt-BR formatted figures as the portal renders
// them, with or without the currency prefix.
var amountPattern = regexp.MustCompile(`(?:R\$\s*)?\d{1,3}(?:\.\d{3})*,\d{2}`)

// ExtractLabeledAmount parses portal frame HTML and returns the first
// monetary amount that appears at or after the cell containing label.
// The portal lays its value screens out as label/value table pairs,
// but cell structure varies between screens, so matching works over
// the linearized text rather than the table shape.
func ExtractLabeledAmount(frameHTML, label string) (money.Centavos, error) {
	cells, err := textCells(frameHTML)
	if err != nil {
		return 0, err
	}

	foldedLabel := Fold(label)
	for i, cell := range cells {
		if !strings.Contains(Fold(cell), foldedLabel) {
			continue
		}
		// The amount may share the label's cell or sit in one of the
		// next few cells.
		for j := i; j < len(cells) && j < i+4; j++ {
			if match := amountPattern.FindString(cells[j]); match != "" {
				return money.ParseBRL(strings.TrimSpace(strings.TrimPrefix(match, "R$")))
			}
		}
	}
	return 0, fmt.Errorf("no amount found near label %q", label)
}

// textCells linearizes the document into visible text chunks, one per
// element boundary, in document order.
func textCells(frameHTML string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(frameHTML))
	if err != nil {
		return nil, fmt.Errorf("parse frame HTML: %w", err)
	}

	var cells []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				cells = append(cells, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return cells, nil
}

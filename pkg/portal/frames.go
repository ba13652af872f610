package portal

import (
	"time"
)

// Frame is the narrow view of a live portal frame the driver relies
// on. Keeping it small lets tests exercise the driver against fakes
// and keeps Playwright types out of the decision logic.
type Frame interface {
	// Name returns the frame's name attribute, which the portal does
	// set even though it reassigns which frame holds which screen.
	Name() string

	// Content returns the frame's full HTML.
	Content() (string, error)

	// InnerText returns the visible text of the frame body.
	InnerText() (string, error)

	// Click clicks the first element matching selector.
	Click(selector string, timeout time.Duration) error

	// Fill fills the first element matching selector with value.
	Fill(selector, value string, timeout time.Duration) error
}

// Page is the driver's view of the whole browser page.
type Page interface {
	// Frames returns all frames currently attached, including the
	// main frame. Order is not meaningful.
	Frames() []Frame

	// SetDialogPolicy arms the handler for the next native dialog:
	// accept when authorized, dismiss otherwise. Dismissal is the
	// default state of a new page.
	SetDialogPolicy(accept bool)

	// PDF renders the current page to PDF for receipt capture.
	// Not all environments support it; callers treat failure as
	// a missing nicety, not an error.
	PDF() ([]byte, error)
}

// FindInAnyFrame searches every attached frame and returns the first
// for which pred is true. The portal moves screens between frames
// freely, so this is the only sanctioned way to locate a screen.
func FindInAnyFrame(p Page, pred func(Frame) bool) (Frame, bool) {
	for _, f := range p.Frames() {
		if pred(f) {
			return f, true
		}
	}
	return nil, false
}

// FrameWithText returns a predicate matching frames whose visible
// text contains the given marker, accent- and case-insensitively.
func FrameWithText(marker string) func(Frame) bool {
	return func(f Frame) bool {
		text, err := f.InnerText()
		if err != nil {
			return false
		}
		return ContainsFolded(text, marker)
	}
}

// AnyFrameText concatenates the visible text of all frames. Frames
// that fail to read are skipped; the portal detaches frames while
// navigating and a torn read must not abort a marker scan.
func AnyFrameText(p Page) string {
	var out string
	for _, f := range p.Frames() {
		text, err := f.InnerText()
		if err != nil {
			continue
		}
		out += text + "\n"
	}
	return out
}

package portal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFrame struct {
	failing map[string]error
	clicked []string
	filled  map[string]string
}

func newRecordingFrame(failing map[string]error) *recordingFrame {
	return &recordingFrame{failing: failing, filled: make(map[string]string)}
}

func (f *recordingFrame) Name() string               { return "test" }
func (f *recordingFrame) Content() (string, error)   { return "", nil }
func (f *recordingFrame) InnerText() (string, error) { return "", nil }

func (f *recordingFrame) Click(selector string, _ time.Duration) error {
	if err, ok := f.failing[selector]; ok {
		return err
	}
	f.clicked = append(f.clicked, selector)
	return nil
}

func (f *recordingFrame) Fill(selector, value string, _ time.Duration) error {
	if err, ok := f.failing[selector]; ok {
		return err
	}
	f.filled[selector] = value
	return nil
}

func TestClickAny_FirstStrategyWins(t *testing.T) {
	frame := newRecordingFrame(nil)
	strategies := []Strategy{
		{"primary", "#a"},
		{"secondary", "#b"},
	}

	require.NoError(t, clickAny(frame, strategies, time.Second))
	assert.Equal(t, []string{"#a"}, frame.clicked, "later strategies must not run after a success")
}

func TestClickAny_FallsThroughInOrder(t *testing.T) {
	frame := newRecordingFrame(map[string]error{
		"#a": errors.New("detached"),
		"#b": errors.New("not visible"),
	})
	strategies := []Strategy{
		{"primary", "#a"},
		{"secondary", "#b"},
		{"structural", "#c"},
	}

	require.NoError(t, clickAny(frame, strategies, time.Second))
	assert.Equal(t, []string{"#c"}, frame.clicked)
}

func TestClickAny_AllExhausted(t *testing.T) {
	frame := newRecordingFrame(map[string]error{
		"#a": errors.New("detached"),
		"#b": errors.New("not visible"),
	})
	strategies := []Strategy{
		{"primary", "#a"},
		{"secondary", "#b"},
	}

	err := clickAny(frame, strategies, time.Second)
	require.Error(t, err)
	// The failure names every strategy so the log tells the operator
	// what was tried.
	assert.Contains(t, err.Error(), "primary")
	assert.Contains(t, err.Error(), "secondary")
}

func TestFillAny_FallsThroughInOrder(t *testing.T) {
	frame := newRecordingFrame(map[string]error{"#user": errors.New("no match")})
	strategies := []Strategy{
		{"by name", "#user"},
		{"by position", "form input"},
	}

	require.NoError(t, fillAny(frame, strategies, "operator", time.Second))
	assert.Equal(t, "operator", frame.filled["form input"])
}

func TestFillAny_AllExhausted(t *testing.T) {
	frame := newRecordingFrame(map[string]error{"#user": errors.New("no match")})
	err := fillAny(frame, []Strategy{{"by name", "#user"}}, "x", time.Second)
	assert.Error(t, err)
}

package tui

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type externalEditorDoneMsg struct {
	err error
}

// EditorName is $VISUAL, then $EDITOR, then vi.
func EditorName() string {
	if v := strings.TrimSpace(os.Getenv("VISUAL")); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("EDITOR")); v != "" {
		return v
	}
	return "vi"
}

// EditorCommand builds the command that opens path in the user's editor.
// Editor values may carry arguments ("code --wait").
func EditorCommand(path string) *exec.Cmd {
	args := splitShellWords(EditorName())
	if len(args) == 0 {
		args = []string{"vi"}
	}
	return exec.Command(args[0], append(args[1:], path)...)
}

func (m *appModel) openExternalEditor() (tea.Cmd, error) {
	f, err := os.CreateTemp("", "plotline-outline-*.md")
	if err != nil {
		return nil, err
	}
	path := f.Name()
	before := m.textarea.Value()
	if _, err := f.WriteString(before); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	_ = f.Close()

	m.externalEditorPath = path
	m.externalEditorBefore = before

	return tea.ExecProcess(EditorCommand(path), func(err error) tea.Msg {
		return externalEditorDoneMsg{err: err}
	}), nil
}

func (m *appModel) applyExternalEditorResult(msg externalEditorDoneMsg) {
	path := m.externalEditorPath
	before := m.externalEditorBefore

	m.externalEditorPath = ""
	m.externalEditorBefore = ""
	defer func() { _ = os.Remove(path) }()

	if strings.TrimSpace(path) == "" {
		return
	}
	if msg.err != nil {
		m.flashErr("Editor failed: " + msg.err.Error())
		return
	}
	b, err := os.ReadFile(path)
	if err != nil {
		m.flashErr("Editor read failed: " + err.Error())
		return
	}

	after := string(b)
	if strings.TrimSpace(after) == strings.TrimSpace(before) {
		m.flash(fmt.Sprintf("No changes from %s", EditorName()))
		return
	}
	m.setDraft(after)
	m.flash(fmt.Sprintf("Updated from %s (ctrl+s to save)", EditorName()))
}

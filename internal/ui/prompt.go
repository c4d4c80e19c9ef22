package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// ErrPromptCancelled is returned when the user aborts the prompt.
var ErrPromptCancelled = errors.New("prompt cancelled")

// addressModel is the Bubble Tea model for the address entry prompt.
type addressModel struct {
	title    string
	validate func(string) error
	input    string
	errMsg   string
	value    string
	quitting bool
}

func (m addressModel) Init() tea.Cmd { return nil }

func (m addressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyEnter:
		candidate := sanitize(m.input)
		if err := m.validate(candidate); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.value = candidate
		return m, tea.Quit

	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}

	case tea.KeyCtrlU:
		m.input = ""

	case tea.KeyRunes, tea.KeySpace:
		m.input += string(key.Runes)
		m.errMsg = ""
	}
	return m, nil
}

func (m addressModel) View() string {
	if m.quitting || m.value != "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(m.title) + "\n")
	sb.WriteString(StyleMeta.Render("0x… or ronin:… address") + "\n")
	sb.WriteString(StyleCursor.Render("> ") + StyleAddress.Render(m.input) + "█\n")
	if m.errMsg != "" {
		sb.WriteString(Err(m.errMsg) + "\n")
	}
	sb.WriteString("\n" + StyleMeta.Render("[ Enter ] export   [ Esc ] cancel") + "\n")
	return StyleBorder.Render(sb.String()) + "\n"
}

// sanitize strips whitespace and accidental brackets or quotes from a paste.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "[]\"'")
	return strings.TrimSpace(s)
}

// PromptAddress asks for an address. On a terminal it runs an interactive
// prompt that re-asks until validate accepts the input. Otherwise it reads
// a single line from in and fails if that line is invalid.
func PromptAddress(in io.Reader, out io.Writer, title string, validate func(string) error) (string, error) {
	if isTerminal(in) {
		return promptInteractive(in, out, title, validate)
	}
	return promptLine(in, out, title, validate)
}

func promptInteractive(in io.Reader, out io.Writer, title string, validate func(string) error) (string, error) {
	m := addressModel{title: title, validate: validate}
	p := tea.NewProgram(m, tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("address prompt: %w", err)
	}
	fm := final.(addressModel)
	if fm.quitting || fm.value == "" {
		return "", ErrPromptCancelled
	}
	return fm.value, nil
}

func promptLine(in io.Reader, out io.Writer, title string, validate func(string) error) (string, error) {
	fmt.Fprintf(out, "%s ", StyleTitle.UnsetMarginBottom().Render(title+":"))
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading address: %w", err)
	}
	fmt.Fprintln(out)
	candidate := sanitize(line)
	if candidate == "" && errors.Is(err, io.EOF) {
		return "", ErrPromptCancelled
	}
	if err := validate(candidate); err != nil {
		return "", err
	}
	return candidate, nil
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Package repl implements the Read-Eval-Print Loop for ripvm's source
// language.
//
// The REPL provides an interactive interface for users to enter source
// text, have it decoded and run against a single, persistent execution
// context, and see the results immediately. It uses the Charm libraries
// (Bubble Tea, Bubbles, and Lipgloss) to create a modern terminal interface
// with syntax highlighting and command history.
//
// Key features:
//   - Interactive command input and execution
//   - Command history tracking
//   - Styled output with different colors for results and errors
//   - A single vm.Context persisted across entries, so globals and
//     def-ined methods survive between lines
//   - Yank-to-clipboard for the last result (Ctrl+Y)
package repl

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nolang/ripvm/code"
	"github.com/nolang/ripvm/compiler"
	"github.com/nolang/ripvm/host"
	"github.com/nolang/ripvm/lexer"
	"github.com/nolang/ripvm/parser"
	"github.com/nolang/ripvm/token"
	"github.com/nolang/ripvm/value"
	"github.com/nolang/ripvm/vm"
)

const (
	// Prompt is the default prompt for the REPL.
	Prompt = ">> "

	// ContPrompt is the continuation prompt used in multiline input mode.
	ContPrompt = ".. "
)

// Options contains configuration options for the REPL.
type Options struct {
	NoColor bool // Disable syntax highlighting and colored output
	Debug   bool // Enable debug mode with more verbose output
}

// Start initializes and runs the REPL with the given username and options.
// It creates a new bubbletea program with an initial model and runs it. If
// an error occurs while running the program, it is printed to the console.
func Start(username string, options Options) {
	p := tea.NewProgram(initialModel(username, options))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running program:", err)
	}
}

// Styling
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	parseErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	runtimeErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF8700")).
				Bold(true)

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	// Syntax highlighting styles
	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF79C6")).
			Bold(true)

	identifierStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F8F8F2"))

	literalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	operatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	delimiterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BD93F9"))

	stringStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	yankedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8BE9FD"))
)

// ErrorType represents the type of error that occurred.
type ErrorType int

const (
	// NoError indicates that no error occurred.
	NoError ErrorType = iota

	// ParseError indicates an error during the parsing phase.
	ParseError

	// CompileError indicates an error while compiling the AST to bytecode
	// tuples, or while the decoder translates those tuples into an ISeq.
	CompileError

	// RuntimeError signifies an error during dispatch.
	RuntimeError
)

// evalResultMsg carries the outcome of an asynchronous evaluation back to
// Update.
type evalResultMsg struct {
	output    string
	isError   bool
	errorType ErrorType
	elapsed   time.Duration
}

// model represents the state of the application.
type model struct {
	textInput       textinput.Model
	history         []historyEntry
	ctx             *vm.Context
	username        string
	evaluating      bool
	currentInput    string
	multilineBuffer string
	isMultiline     bool
	spinner         spinner.Model
	options         Options
	lastResult      string
	yankMsg         string
}

// applyStyle applies a lipgloss style to a string, respecting the NoColor
// option.
func (m model) applyStyle(style lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return style.Render(text)
}

// historyEntry represents a single entry in the REPL history.
type historyEntry struct {
	input          string
	output         string
	isError        bool
	errorType      ErrorType
	evaluationTime time.Duration
}

// initialModel creates a new model with default values, backed by one
// vm.Context that persists for the REPL's lifetime.
func initialModel(username string, options Options) model {
	ti := textinput.New()
	ti.Placeholder = "Enter code"
	ti.Focus()
	ti.Width = 80
	ti.Prompt = promptStyle.Render(Prompt)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		textInput:  ti,
		history:    []historyEntry{},
		ctx:        vm.NewContext(host.NewDefault()),
		username:   username,
		evaluating: false,
		spinner:    s,
		options:    options,
	}
}

// Init is the first function that will be called.
func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// isBalanced checks whether brackets, braces, and parentheses are balanced
// in the input.
func isBalanced(input string) bool {
	var stack []rune

	for _, char := range input {
		switch char {
		case '(', '{', '[':
			stack = append(stack, char)
		case ')':
			if len(stack) == 0 || stack[len(stack)-1] != '(' {
				return false
			}
			stack = stack[:len(stack)-1]
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return false
			}
			stack = stack[:len(stack)-1]
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}

	return len(stack) == 0
}

// evalCmd decodes input against the shared ctx and runs it to completion,
// returning an asynchronous evalResultMsg. ctx is the same execution
// context across every call, so globals and def-ined methods persist.
func evalCmd(input string, ctx *vm.Context, debug bool) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()

		l := lexer.New(input)
		p := parser.New(l)
		program := p.ParseProgram()

		if len(p.Errors()) != 0 {
			return evalResultMsg{
				output:    formatParseErrors(p.Errors()),
				isError:   true,
				errorType: ParseError,
				elapsed:   time.Since(start),
			}
		}

		comp := compiler.New()
		tuple, err := comp.Compile(program)
		if err != nil {
			return evalResultMsg{
				output:    formatCompileError(err.Error()),
				isError:   true,
				errorType: CompileError,
				elapsed:   time.Since(start),
			}
		}

		iseq, err := code.Decode(tuple, value.MainValue)
		if err != nil {
			return evalResultMsg{
				output:    formatCompileError(err.Error()),
				isError:   true,
				errorType: CompileError,
				elapsed:   time.Since(start),
			}
		}

		if debug {
			fmt.Print(code.Disassemble(iseq))
		}

		result, err := ctx.Eval(iseq)
		if err != nil {
			return evalResultMsg{
				output:    formatRuntimeError(err.Error()),
				isError:   true,
				errorType: RuntimeError,
				elapsed:   time.Since(start),
			}
		}

		return evalResultMsg{
			output:  result.Inspect(),
			elapsed: time.Since(start),
		}
	}
}

// formatError formats error messages, splitting the output from any
// trailing "Tips:" block so each half can take a distinct style.
func (m model) formatError(errorStyle *lipgloss.Style, entry *historyEntry, s *strings.Builder) {
	parts := strings.Split(entry.output, "\nTips:")
	if len(parts) > 1 {
		if m.options.NoColor {
			s.WriteString(parts[0])
			s.WriteString("\n")
			s.WriteString("Tips:" + parts[1])
		} else {
			s.WriteString(errorStyle.Render(parts[0]))
			s.WriteString("\n")
			s.WriteString(historyStyle.Render("Tips:" + parts[1]))
		}
	} else {
		if m.options.NoColor {
			s.WriteString(entry.output)
		} else {
			s.WriteString(errorStyle.Render(entry.output))
		}
	}
}

// Update handles all the updates to our model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.evaluating {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case evalResultMsg:
		m.evaluating = false
		m.yankMsg = ""
		if !msg.isError {
			m.lastResult = msg.output
		}

		m.history = append(m.history, historyEntry{
			input:          m.currentInput,
			output:         msg.output,
			isError:        msg.isError,
			errorType:      msg.errorType,
			evaluationTime: msg.elapsed,
		})

		m.currentInput = ""
		return m, nil

	case tea.KeyMsg:
		if m.evaluating && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit

		case tea.KeyCtrlY:
			if m.lastResult == "" {
				m.yankMsg = "nothing to yank yet"
			} else if err := clipboard.WriteAll(m.lastResult); err != nil {
				m.yankMsg = "could not copy to clipboard: " + err.Error()
			} else {
				m.yankMsg = "copied last result to clipboard"
			}
			return m, nil

		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" {
				if m.isMultiline {
					if m.multilineBuffer == "" {
						m.isMultiline = false
						return m, nil
					}

					m.evaluating = true
					m.currentInput = m.multilineBuffer
					m.textInput.SetValue("")
					m.isMultiline = false

					buffer := m.multilineBuffer
					m.multilineBuffer = ""

					return m, evalCmd(buffer, m.ctx, m.options.Debug)
				}
				return m, nil
			}

			if m.isMultiline {
				m.multilineBuffer += "\n" + input
				m.textInput.SetValue("")

				if isBalanced(m.multilineBuffer) {
					m.evaluating = true
					m.currentInput = m.multilineBuffer
					m.isMultiline = false

					buffer := m.multilineBuffer
					m.multilineBuffer = ""

					return m, evalCmd(buffer, m.ctx, m.options.Debug)
				}

				return m, nil
			}

			if !isBalanced(input) {
				m.isMultiline = true
				m.multilineBuffer = input
				m.textInput.SetValue("")
				return m, nil
			}

			m.evaluating = true
			m.currentInput = input
			m.textInput.SetValue("")

			return m, evalCmd(input, m.ctx, m.options.Debug)
		}
	}

	if !m.evaluating {
		m.textInput, cmd = m.textInput.Update(msg)
	}

	if m.evaluating {
		return m, m.spinner.Tick
	}

	return m, cmd
}

// View renders the current UI.
func (m model) View() string {
	var s strings.Builder

	s.WriteString(m.applyStyle(titleStyle, " ripvm REPL "))
	s.WriteString("\n")

	if m.username != "" {
		s.WriteString(fmt.Sprintf("\nHello %s! Feel free to type in code\n", m.username))
	}
	s.WriteString("\n")

	for _, entry := range m.history {
		lines := strings.Split(entry.input, "\n")
		for i, line := range lines {
			if i == 0 {
				s.WriteString(m.applyStyle(promptStyle, Prompt))
			} else {
				s.WriteString(m.applyStyle(promptStyle, ContPrompt))
			}
			s.WriteString(m.highlightCode(line))
			s.WriteString("\n")
		}

		if entry.isError {
			switch entry.errorType {
			case ParseError, CompileError:
				m.formatError(&parseErrorStyle, &entry, &s)
			case RuntimeError:
				m.formatError(&runtimeErrorStyle, &entry, &s)
			default:
				if m.options.NoColor {
					s.WriteString(entry.output)
				} else {
					s.WriteString(errorStyle.Render(entry.output))
				}
			}
		} else {
			if m.options.NoColor {
				s.WriteString(entry.output)
			} else {
				s.WriteString(resultStyle.Render(entry.output))
			}
		}

		if entry.evaluationTime > 10*time.Millisecond {
			timeStr := fmt.Sprintf(" (%.2fs)", entry.evaluationTime.Seconds())
			if m.options.NoColor {
				s.WriteString(timeStr)
			} else {
				s.WriteString(historyStyle.Render(timeStr))
			}
		}

		s.WriteString("\n\n")
	}

	if m.evaluating {
		if m.options.NoColor {
			s.WriteString(Prompt)
		} else {
			s.WriteString(promptStyle.Render(Prompt))
		}
		s.WriteString(m.highlightCode(m.currentInput))
		s.WriteString("\n")
		s.WriteString(m.spinner.View())
		s.WriteString(" Evaluating...")
		s.WriteString("\n\n")
	}

	if m.isMultiline && !m.evaluating {
		if m.options.NoColor {
			s.WriteString("Current multiline input:\n")
		} else {
			s.WriteString(historyStyle.Render("Current multiline input:\n"))
		}
		s.WriteString(m.highlightCode(m.multilineBuffer))
		s.WriteString("\n")
	}

	if !m.evaluating {
		if m.isMultiline {
			if m.options.NoColor {
				m.textInput.Prompt = ContPrompt
			} else {
				m.textInput.Prompt = promptStyle.Render(ContPrompt)
			}
		} else {
			if m.options.NoColor {
				m.textInput.Prompt = Prompt
			} else {
				m.textInput.Prompt = promptStyle.Render(Prompt)
			}
		}
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	if m.yankMsg != "" {
		s.WriteString(m.applyStyle(yankedStyle, m.yankMsg))
		s.WriteString("\n")
	}

	helpText := "\nPress Esc or Ctrl+C/D to exit | Ctrl+Y to yank the last result"
	if m.isMultiline {
		helpText += " | Multiline mode: Enter empty line to evaluate or continue typing"
	} else {
		helpText += " | Multiline input supported for unbalanced brackets"
	}
	if m.options.NoColor {
		s.WriteString(helpText)
	} else {
		s.WriteString(historyStyle.Render(helpText))
	}

	return s.String()
}

// formatParseErrors formats parser errors into a readable block.
func formatParseErrors(errors []string) string {
	var s strings.Builder
	s.WriteString("Parse Errors:\n")

	for i, msg := range errors {
		s.WriteString(fmt.Sprintf("  %d. %s\n", i+1, msg))
	}

	s.WriteString("\nTips:\n")
	s.WriteString("  • Check for missing parentheses, braces, or \"end\" keywords\n")
	s.WriteString("  • Verify that all expressions are properly terminated\n")
	s.WriteString("  • Ensure variable names are valid identifiers\n")

	return s.String()
}

// formatCompileError formats a compiler/decoder error into a readable
// block.
func formatCompileError(errMsg string) string {
	var s strings.Builder
	s.WriteString("Compile Error:\n")
	s.WriteString("  " + errMsg + "\n")
	return s.String()
}

// formatRuntimeError formats a runtime error into a readable block with
// tips tailored to the kind of error the execution core reports.
func formatRuntimeError(errorMsg string) string {
	var s strings.Builder
	s.WriteString("Runtime Error:\n")
	s.WriteString("  " + errorMsg + "\n")

	s.WriteString("\nTips:\n")

	//nolint:gocritic
	if strings.Contains(errorMsg, "undefined local") {
		s.WriteString("  • A local is read before it is ever assigned on this path\n")
		s.WriteString("  • Check every branch assigns the variable before use\n")
	} else if strings.Contains(errorMsg, "wrong number of arguments") {
		s.WriteString("  • Check the call site's argument count against the method's def\n")
	} else if strings.Contains(errorMsg, "undefined method") {
		s.WriteString("  • Check the method name is spelled correctly and is defined\n")
		s.WriteString("  • Built-in primitive methods are limited to a small fixed set of operators\n")
	} else {
		s.WriteString("  • Review your code logic\n")
		s.WriteString("  • Check for type mismatches or undefined variables\n")
	}

	return s.String()
}

// highlightCode applies syntax highlighting and formatting to source code.
//
//nolint:gocyclo
func (m model) highlightCode(code string) string {
	l := lexer.New(code)
	var s strings.Builder

	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}

	isKeyword := func(t token.Token) bool {
		switch t.Type {
		case token.Def, token.End, token.True, token.False, token.Nil, token.If, token.Unless, token.Else:
			return true
		}
		return false
	}
	isOperator := func(t token.Token) bool {
		switch t.Type {
		case token.Assign, token.Plus, token.Minus, token.Bang, token.Asterisk, token.Slash,
			token.Percent, token.Amp, token.Pipe, token.Lt, token.Gt, token.Lte, token.Gte,
			token.Eq, token.NotEq:
			return true
		}
		return false
	}
	isOpenParen := func(t token.Token) bool { return t.Type == token.Lparen }
	isCloseParen := func(t token.Token) bool { return t.Type == token.Rparen }
	isDelimiter := func(t token.Token) bool {
		switch t.Type {
		case token.Comma, token.Colon, token.Semicolon, token.Lparen, token.Rparen,
			token.Lbrace, token.Rbrace, token.Lbracket, token.Rbracket:
			return true
		}
		return false
	}

	for i := range len(tokens) - 1 {
		tok := tokens[i]
		if tok.Type == token.EOF {
			continue
		}
		var prev token.Token
		if i > 0 {
			prev = tokens[i-1]
		}
		next := tokens[i+1]

		if isKeyword(tok) {
			if m.options.NoColor {
				s.WriteString(tok.Literal)
			} else {
				s.WriteString(keywordStyle.Render(tok.Literal))
			}
			if !isDelimiter(next) && !isOperator(next) {
				s.WriteString(" ")
			}
			continue
		}

		if isOperator(tok) {
			isPrefixOp := false
			if (tok.Type == token.Bang || tok.Type == token.Minus) &&
				(i == 0 || isOpenParen(prev) || isOperator(prev) || isDelimiter(prev)) {
				isPrefixOp = true
			}

			if !isPrefixOp && i > 0 && (!isDelimiter(prev) || isCloseParen(prev)) {
				s.WriteString(" ")
			}

			if m.options.NoColor {
				s.WriteString(tok.Literal)
			} else {
				s.WriteString(operatorStyle.Render(tok.Literal))
			}

			if !isPrefixOp && !isDelimiter(next) {
				s.WriteString(" ")
			}
			continue
		}

		switch tok.Type {
		case token.Ident:
			if m.options.NoColor {
				s.WriteString(tok.Literal)
			} else {
				s.WriteString(identifierStyle.Render(tok.Literal))
			}
		case token.Global:
			lit := "$" + tok.Literal
			if m.options.NoColor {
				s.WriteString(lit)
			} else {
				s.WriteString(identifierStyle.Render(lit))
			}
		case token.Int:
			if m.options.NoColor {
				s.WriteString(tok.Literal)
			} else {
				s.WriteString(literalStyle.Render(tok.Literal))
			}
		case token.String:
			if m.options.NoColor {
				s.WriteString("\"" + tok.Literal + "\"")
			} else {
				s.WriteString(stringStyle.Render("\"" + tok.Literal + "\""))
			}
		case token.Comma, token.Colon, token.Semicolon, token.Lparen, token.Rparen,
			token.Lbrace, token.Rbrace, token.Lbracket, token.Rbracket:
			if m.options.NoColor {
				s.WriteString(tok.Literal)
			} else {
				s.WriteString(delimiterStyle.Render(tok.Literal))
			}
		default:
			s.WriteString(tok.Literal)
		}

		if tok.Type == token.Semicolon && next.Type != token.EOF {
			s.WriteString("\n")
		}
	}

	return s.String()
}

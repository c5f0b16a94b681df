package interactive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
)

// NumberHint is shown when a numeric field receives text.
const NumberHint = "Please enter a number."

// Form asks for each field in turn and collects the parsed answers.
type Form struct {
	title   string
	fields  []Field
	index   int
	input   textinput.Model
	values  models.PatientRecord
	err     string
	done    bool
	aborted bool
}

func NewForm(title string, fields []Field) Form {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 64
	input.Focus()

	f := Form{
		title:  title,
		fields: fields,
		input:  input,
		values: make(models.PatientRecord, len(fields)),
	}
	f.resetInput()
	if len(fields) == 0 {
		f.done = true
	}
	return f
}

func (f Form) Init() tea.Cmd {
	return textinput.Blink
}

func (f Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if f.done || f.aborted {
		return f, tea.Quit
	}
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc":
			f.aborted = true
			return f, tea.Quit
		case "enter":
			field := f.fields[f.index]
			value, err := field.Parse(f.input.Value())
			if err != nil {
				f.err = inputHint(err)
				f.input.SetValue("")
				return f, nil
			}
			f.values[field.Name] = value
			f.err = ""
			f.index++
			if f.index == len(f.fields) {
				f.done = true
				return f, tea.Quit
			}
			f.resetInput()
			return f, nil
		}
	}

	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

// inputHint turns a parse error into the message shown under the input.
func inputHint(err error) string {
	if errors.Is(err, ErrNotNumber) {
		return NumberHint
	}
	return err.Error()
}

func (f *Form) resetInput() {
	f.input.Reset()
	if f.index < len(f.fields) {
		f.input.Placeholder = f.fields[f.index].DefaultText()
	}
}

func (f Form) View() string {
	if f.done || f.aborted {
		return ""
	}
	var b strings.Builder
	if f.title != "" {
		b.WriteString(TitleStyle.Render(f.title) + "\n\n")
	}
	for i := 0; i < f.index; i++ {
		name := f.fields[i].Name
		b.WriteString(fmt.Sprintf("%s %v\n", PromptStyle.Render(name+":"), f.values[name]))
	}
	field := f.fields[f.index]
	b.WriteString(fmt.Sprintf("%s %s\n", PromptStyle.Render(field.Name), DefaultStyle.Render("["+field.DefaultText()+"]")))
	b.WriteString(f.input.View() + "\n")
	if f.err != "" {
		b.WriteString(ErrorStyle.Render("  "+f.err) + "\n")
	}
	b.WriteString(HelpStyle.Render("Enter accepts the default shown in brackets. Esc cancels."))
	return b.String()
}

// Values returns the answers collected so far, keyed by field name.
func (f Form) Values() models.PatientRecord {
	return f.values.Clone()
}

func (f Form) Done() bool {
	return f.done
}

func (f Form) Aborted() bool {
	return f.aborted
}

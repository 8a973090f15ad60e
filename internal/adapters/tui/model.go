package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/danielpatrickdp/choice-experiment/internal/catalog"
	"github.com/danielpatrickdp/choice-experiment/internal/record"
	"github.com/danielpatrickdp/choice-experiment/internal/session"
)

// outcomeMsg carries the result of a handled event back into Update.
type outcomeMsg struct {
	out session.Outcome
	err error
}

// Model renders one session in the terminal and turns key presses into
// session events. Events run as commands; while one is in flight the
// session ignores the next.
type Model struct {
	ctx     context.Context
	machine *session.Machine
	session *session.Session
	labels  labels
	styles  Styles

	view     session.View
	input    textinput.Model
	bar      progress.Model
	side     record.Side // highlighted choice
	cursor   int         // highlighted select option
	slider   int64
	position string // phase/block/step the widgets were reset for

	pending bool
	status  string
	width   int
}

// New prepares a model for a fresh session of m.
func New(ctx context.Context, m *session.Machine, lang string) Model {
	in := textinput.New()
	in.Prompt = "> "
	in.CharLimit = 64
	in.Focus()

	s := m.NewSession()
	model := Model{
		ctx:     ctx,
		machine: m,
		session: s,
		labels:  labelsFor(lang),
		styles:  DefaultStyles(),
		input:   in,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		side:    record.SS,
	}
	model.refresh()
	return model
}

// Session returns the session driven by the model.
func (m Model) Session() *session.Session { return m.session }

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// #region update

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(msg.Width-8, 60)
		return m, nil

	case outcomeMsg:
		m.pending = false
		m.status = ""
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.view.Phase {
		case session.PhaseIntro:
			return m.updateIntro(msg)
		case session.PhaseChoice:
			return m.updateChoice(msg)
		case session.PhaseSurvey:
			return m.updateSurvey(msg)
		default:
			if msg.String() == "q" || msg.Type == tea.KeyEnter || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m Model) updateIntro(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		return m.send(session.Start(m.input.Value()))
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateChoice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "1":
		return m.send(session.Choose(record.SS))
	case "2":
		return m.send(session.Choose(record.LL))
	case "left", "h":
		m.side = record.SS
	case "right", "l":
		m.side = record.LL
	case "enter", " ":
		return m.send(session.Choose(m.side))
	}
	return m, nil
}

func (m Model) updateSurvey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item := m.view.Survey
	if item == nil {
		return m, nil
	}
	switch item.Type {
	case catalog.AnswerSelect:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(item.Options)-1 {
				m.cursor++
			}
		case "enter":
			if len(item.Options) > 0 {
				return m.send(session.Answer(item.Options[m.cursor]))
			}
		}
		return m, nil

	case catalog.AnswerSlider:
		switch msg.String() {
		case "left", "h":
			if m.slider > item.Min {
				m.slider--
			}
		case "right", "l":
			if m.slider < item.Max {
				m.slider++
			}
		case "enter":
			return m.send(session.Answer(strconv.FormatInt(m.slider, 10)))
		}
		return m, nil
	}

	if msg.Type == tea.KeyEnter {
		return m.send(session.Answer(m.input.Value()))
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send hands ev to the machine off the UI goroutine.
func (m Model) send(ev session.Event) (tea.Model, tea.Cmd) {
	m.pending = true
	ctx, machine, s := m.ctx, m.machine, m.session
	return m, func() tea.Msg {
		out, err := machine.Handle(ctx, s, ev)
		return outcomeMsg{out: out, err: err}
	}
}

// refresh reloads the view and resets the input widgets on a new question.
func (m *Model) refresh() {
	m.view = m.machine.View(m.session)
	pos := fmt.Sprintf("%s/%s/%d", m.view.Phase, m.view.Block, m.view.Step)
	if pos == m.position {
		return
	}
	m.position = pos
	m.input.SetValue("")
	m.side = record.SS
	m.cursor = 0
	if m.view.Survey != nil {
		m.slider = m.view.Survey.Default
	}
}

// #endregion update

// #region view

func (m Model) View() string {
	var b strings.Builder
	l := m.labels
	st := m.styles

	b.WriteString(st.Title.Render(l.title))
	b.WriteString("\n")
	if m.view.Total > 0 {
		b.WriteString(m.bar.ViewAs(float64(m.view.Answered) / float64(m.view.Total)))
		b.WriteString(fmt.Sprintf(" %d/%d\n", m.view.Answered, m.view.Total))
	}
	b.WriteString("\n")

	help := l.quitHelp
	switch m.view.Phase {
	case session.PhaseIntro:
		b.WriteString(l.intro + "\n\n")
		b.WriteString(st.Prompt.Render(l.participant) + "\n")
		b.WriteString(m.input.View() + "\n")
		help = "enter"

	case session.PhaseChoice:
		q := m.view.Question
		b.WriteString(st.Prompt.Render(q.Prompt) + "\n\n")
		b.WriteString(m.optionLine("1", q.SS.Label, m.side == record.SS) + "\n")
		b.WriteString(m.optionLine("2", q.LL.Label, m.side == record.LL) + "\n")
		help = l.choiceHelp

	case session.PhaseSurvey:
		item := m.view.Survey
		b.WriteString(st.Help.Render(l.survey) + "\n")
		b.WriteString(st.Prompt.Render(item.Text) + "\n\n")
		switch item.Type {
		case catalog.AnswerSelect:
			for i, opt := range item.Options {
				b.WriteString(m.optionLine(strconv.Itoa(i+1), opt, i == m.cursor) + "\n")
			}
			help = l.selectHelp
		case catalog.AnswerSlider:
			b.WriteString(fmt.Sprintf("%d  ", item.Min))
			for v := item.Min; v <= item.Max; v++ {
				if v == m.slider {
					b.WriteString(st.Selected.Render(strconv.FormatInt(v, 10)))
				} else {
					b.WriteString(" · ")
				}
			}
			b.WriteString(fmt.Sprintf("  %d\n", item.Max))
			help = l.sliderHelp
		default:
			b.WriteString(m.input.View() + "\n")
			help = l.numberHelp
		}

	case session.PhaseDone:
		b.WriteString(st.Notice.Render(l.done) + "\n")

	case session.PhaseDoneUnsaved:
		b.WriteString(st.Error.Render(l.unsaved) + "\n")
		if res, ok := m.session.Submission(); ok && res.Spooled {
			b.WriteString(l.spooled + "\n")
		}
	}

	if m.pending {
		b.WriteString("\n" + st.Help.Render(l.busy))
	}
	if m.status != "" {
		b.WriteString("\n" + st.Error.Render(m.status))
	}
	b.WriteString("\n\n" + st.Help.Render(help))
	return st.Frame.Render(b.String())
}

func (m Model) optionLine(key, label string, selected bool) string {
	line := fmt.Sprintf("[%s] %s", key, label)
	if selected {
		return m.styles.Selected.Render(line)
	}
	return m.styles.Option.Render(line)
}

// #endregion view

// Package report turns module check results into styled terminal output
// and a JSON document.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/mabhi256/jmuzzle/internal/muzzle"
	"github.com/mabhi256/jmuzzle/internal/reference"
	"github.com/mabhi256/jmuzzle/utils"
)

type Summary struct {
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	References int `json:"references"`
	Mismatches int `json:"mismatches"`
}

type Mismatch struct {
	Kind    string   `json:"kind"`
	Class   string   `json:"class"`
	Sources []string `json:"sources,omitempty"`
	Message string   `json:"message"`
}

type Module struct {
	Name            string     `json:"name"`
	Outcome         string     `json:"outcome"`
	FromGenerated   bool       `json:"fromGenerated"`
	MissingRequired []string   `json:"missingRequired,omitempty"`
	References      int        `json:"references"`
	Mismatches      []Mismatch `json:"mismatches,omitempty"`
	DurationMillis  float64    `json:"durationMillis"`

	result *muzzle.ModuleResult
}

// Report is one match run over a target classpath
type Report struct {
	RunID       string    `json:"runId"`
	Target      string    `json:"target"`
	GeneratedAt time.Time `json:"generatedAt"`
	Summary     Summary   `json:"summary"`
	Modules     []Module  `json:"modules"`
}

func New(target string, results []*muzzle.ModuleResult) *Report {
	r := &Report{
		RunID:       uuid.NewString(),
		Target:      target,
		GeneratedAt: time.Now().UTC(),
		Modules:     make([]Module, 0, len(results)),
	}
	for _, res := range results {
		m := Module{
			Name:            res.Module,
			Outcome:         res.Outcome(),
			FromGenerated:   res.FromGenerated,
			MissingRequired: res.MissingRequired,
			References:      len(res.References),
			DurationMillis:  float64(res.Duration.Microseconds()) / 1000,
			result:          res,
		}
		for _, mm := range res.Mismatches {
			m.Mismatches = append(m.Mismatches, Mismatch{
				Kind:    mm.Kind(),
				Class:   mm.ClassName(),
				Sources: mm.Sources(),
				Message: mm.String(),
			})
		}

		switch m.Outcome {
		case muzzle.OutcomePassed:
			r.Summary.Passed++
		case muzzle.OutcomeFailed:
			r.Summary.Failed++
		case muzzle.OutcomeSkipped:
			r.Summary.Skipped++
		}
		r.Summary.References += m.References
		r.Summary.Mismatches += len(m.Mismatches)
		r.Modules = append(r.Modules, m)
	}
	return r
}

// Failed reports whether any module had mismatches
func (r *Report) Failed() bool {
	return r.Summary.Failed > 0
}

// Results returns the check results the report was built from
func (r *Report) Results() []*muzzle.ModuleResult {
	out := make([]*muzzle.ModuleResult, len(r.Modules))
	for i, m := range r.Modules {
		out[i] = m.result
	}
	return out
}

func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r *Report) Render(width int) string {
	var sections []string

	title := utils.TitleStyle.Render("Muzzle check") +
		utils.MutedStyle.Render(fmt.Sprintf("run %s", r.RunID))
	sections = append(sections, title, utils.FormatKeyValue("Target", r.Target, 8), "")

	for _, m := range r.Modules {
		sections = append(sections, RenderModule(m.result, width), "")
	}
	sections = append(sections, r.renderSummary(width))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (r *Report) renderSummary(width int) string {
	total := len(r.Modules)
	ratio := 1.0
	if checked := total - r.Summary.Skipped; checked > 0 {
		ratio = float64(r.Summary.Passed) / float64(checked)
	}

	color := utils.GoodColor
	if r.Failed() {
		color = utils.CriticalColor
	}
	barWidth := max(10, min(40, width-20))

	lines := []string{
		fmt.Sprintf("%s %s %s",
			utils.GoodStyle.Render(fmt.Sprintf("%d passed", r.Summary.Passed)),
			utils.CriticalStyle.Render(fmt.Sprintf("%d failed", r.Summary.Failed)),
			utils.WarningStyle.Render(fmt.Sprintf("%d skipped", r.Summary.Skipped)),
		),
		utils.CreateProgressBar(ratio, barWidth, color) + fmt.Sprintf(" %.0f%%", ratio*100),
		utils.MutedStyle.Render(fmt.Sprintf("%d references, %d mismatches", r.Summary.References, r.Summary.Mismatches)),
	}
	return utils.BoxStyle.Render(strings.Join(lines, "\n"))
}

// RenderModule renders one module result with its mismatches
func RenderModule(res *muzzle.ModuleResult, width int) string {
	outcome := res.Outcome()
	style := utils.GetOutcomeStyle(outcome)

	details := fmt.Sprintf("%d references, %s", len(res.References), utils.FormatDuration(res.Duration))
	if res.FromGenerated {
		details += ", generated"
	}
	lines := []string{
		style.Render(fmt.Sprintf("%s %s", utils.GetOutcomeIcon(outcome), res.Module)) +
			" " + utils.MutedStyle.Render("("+details+")"),
	}

	if res.Skipped {
		lines = append(lines, utils.WarningStyle.Render(
			"  └─ missing required classes: "+strings.Join(res.MissingRequired, ", ")))
	}
	for i, mm := range res.Mismatches {
		branch := "├─"
		if i == len(res.Mismatches)-1 {
			branch = "└─"
		}
		text := utils.TruncateString(mm.String(), max(20, width-8))
		lines = append(lines, fmt.Sprintf("  %s %s %s", branch,
			utils.CriticalStyle.Render(utils.GetKindIcon(mm.Kind())), utils.TextStyle.Render(text)))
	}
	return strings.Join(lines, "\n")
}

// RenderReferences lists references with their expected flags and members
func RenderReferences(refs []*reference.Reference) string {
	if len(refs) == 0 {
		return utils.MutedStyle.Render("no references")
	}

	var lines []string
	for _, ref := range refs {
		header := utils.InfoStyle.Bold(true).Render(ref.ClassName)
		if ref.Flags != 0 {
			header += " " + utils.MutedStyle.Render(ref.Flags.String())
		}
		lines = append(lines, header)
		if len(ref.Sources) > 0 {
			lines = append(lines, utils.MutedStyle.Render("  at "+strings.Join(ref.Sources, ", ")))
		}
		if ref.SuperName != "" {
			lines = append(lines, "  extends "+ref.SuperName)
		}
		for _, iface := range ref.Interfaces {
			lines = append(lines, "  implements "+iface)
		}
		for _, f := range ref.Fields {
			lines = append(lines, memberLine("field", f.String(), f.Flags))
		}
		for _, m := range ref.Methods {
			lines = append(lines, memberLine("method", m.String(), m.Flags))
		}
	}
	return strings.Join(lines, "\n")
}

func memberLine(what, member string, flags reference.Flags) string {
	line := fmt.Sprintf("  %-6s %s", what, member)
	if flags != 0 {
		line += " " + utils.MutedStyle.Render(flags.String())
	}
	return utils.TextStyle.Render(line)
}

// jsonReference is the JSON shape of a reference
type jsonReference struct {
	Class      string       `json:"class"`
	Flags      []string     `json:"flags,omitempty"`
	Sources    []string     `json:"sources,omitempty"`
	SuperName  string       `json:"superName,omitempty"`
	Interfaces []string     `json:"interfaces,omitempty"`
	Fields     []jsonMember `json:"fields,omitempty"`
	Methods    []jsonMember `json:"methods,omitempty"`
}

type jsonMember struct {
	Name       string   `json:"name"`
	Descriptor string   `json:"descriptor"`
	Flags      []string `json:"flags,omitempty"`
	Sources    []string `json:"sources,omitempty"`
}

func flagNames(f reference.Flags) []string {
	if f == 0 {
		return nil
	}
	return strings.Split(f.String(), "|")
}

func WriteReferencesJSON(w io.Writer, refs []*reference.Reference) error {
	out := make([]jsonReference, 0, len(refs))
	for _, ref := range refs {
		jr := jsonReference{
			Class:      ref.ClassName,
			Flags:      flagNames(ref.Flags),
			Sources:    ref.Sources,
			SuperName:  ref.SuperName,
			Interfaces: ref.Interfaces,
		}
		for _, f := range ref.Fields {
			jr.Fields = append(jr.Fields, jsonMember{f.Name, f.Descriptor, flagNames(f.Flags), f.Sources})
		}
		for _, m := range ref.Methods {
			jr.Methods = append(jr.Methods, jsonMember{m.Name, m.Descriptor, flagNames(m.Flags), m.Sources})
		}
		out = append(out, jr)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

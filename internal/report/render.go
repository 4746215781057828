package report

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/verify"
)

// Supported output formats.
const (
	FormatJSON  = "json"
	FormatJUnit = "junit"
	FormatTable = "table"
)

var (
	colorGreen = lipgloss.Color("#22c55e")
	colorRed   = lipgloss.Color("#ef4444")
	colorBlue  = lipgloss.Color("#3b82f6")
	colorDim   = lipgloss.Color("#6b7280")
	colorWhite = lipgloss.Color("#f9fafb")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	headStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	dimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	passStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
)

// Render writes the summary to w in the given format. Apart from the
// run id and timestamp the output is deterministic for a given summary.
func Render(w io.Writer, s *Summary, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, s)
	case FormatJUnit:
		return renderJUnit(w, s)
	case FormatTable:
		return renderTable(w, s)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteFile renders the summary into a file, creating or truncating it.
func WriteFile(path string, s *Summary, format string) error {
	var buf bytes.Buffer
	if err := Render(&buf, s, format); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}
	return nil
}

func renderJSON(w io.Writer, s *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// junitTestSuite mirrors the subset of the JUnit XML schema that CI
// systems consume.
type junitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Timestamp string          `xml:"timestamp,attr"`
	Cases     []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string        `xml:"name,attr"`
	Time    string        `xml:"time,attr"`
	Failure *junitMessage `xml:"failure,omitempty"`
	Skipped *junitMessage `xml:"skipped,omitempty"`
}

type junitMessage struct {
	Message string `xml:"message,attr"`
}

func renderJUnit(w io.Writer, s *Summary) error {
	suite := junitTestSuite{
		Name:      "fabric-verify",
		Tests:     s.Total,
		Failures:  s.Failed,
		Skipped:   s.Skipped + s.Cancelled,
		Timestamp: s.GeneratedAt.Format(time.RFC3339),
	}

	for _, st := range s.Stages {
		tc := junitTestCase{
			Name: st.Name,
			Time: fmt.Sprintf("%.3f", float64(st.DurationMS)/1000),
		}
		switch st.Outcome {
		case verify.OutcomeFail:
			tc.Failure = &junitMessage{Message: st.Reason}
		case verify.OutcomeSkip, verify.OutcomeCancelled:
			tc.Skipped = &junitMessage{Message: st.Reason}
		}
		suite.Cases = append(suite.Cases, tc)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(suite); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func renderTable(w io.Writer, s *Summary) error {
	styled := isTerminal(w)
	render := func(style lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return style.Render(text)
	}

	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(render(titleStyle, fmt.Sprintf("  fabric verify: run %s", s.RunID)))
	b.WriteString("\n")
	b.WriteString(render(dimStyle, "  "+strings.Repeat("─", 62)))
	b.WriteString("\n")
	b.WriteString(render(dimStyle, fmt.Sprintf("  %-24s %-10s %9s  %s", "Stage", "Outcome", "Duration", "Reason")))
	b.WriteString("\n")

	for _, st := range s.Stages {
		outcome := string(st.Outcome)
		switch st.Outcome {
		case verify.OutcomePass:
			outcome = render(passStyle, fmt.Sprintf("%-10s", outcome))
		case verify.OutcomeFail:
			outcome = render(failStyle, fmt.Sprintf("%-10s", outcome))
		default:
			outcome = render(dimStyle, fmt.Sprintf("%-10s", outcome))
		}
		fmt.Fprintf(&b, "  %-24s %s %8dms  %s\n", st.Name, outcome, st.DurationMS, st.Reason)
	}

	b.WriteString(render(dimStyle, "  "+strings.Repeat("─", 62)))
	b.WriteString("\n")

	verdict := render(passStyle, "PASS")
	if !s.Succeeded() {
		verdict = render(failStyle, "FAIL")
	}
	b.WriteString(render(headStyle, "  Summary"))
	fmt.Fprintf(&b, "  %s  %d total, %d passed, %d failed, %d skipped, %d cancelled\n",
		verdict, s.Total, s.Passed, s.Failed, s.Skipped, s.Cancelled)

	_, err := io.WriteString(w, b.String())
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/spherical/hs-classifier/internal/classifier"
	"github.com/spherical/hs-classifier/internal/domain"
)

// UI provides user-friendly output utilities.
type UI struct {
	out      io.Writer
	errOut   io.Writer
	noColor  bool
	jsonMode bool
}

// NewUI creates a UI writing to stdout and stderr.
func NewUI(jsonMode, noColor bool) *UI {
	return &UI{out: os.Stdout, errOut: os.Stderr, noColor: noColor, jsonMode: jsonMode}
}

func (ui *UI) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if ui.noColor {
		c.DisableColor()
	}
	return c
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	ui.paint(color.FgGreen).Fprintf(ui.out, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (ui *UI) Error(format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	ui.paint(color.FgRed).Fprintf(ui.errOut, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (ui *UI) Warning(format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	ui.paint(color.FgYellow).Fprintf(ui.out, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info prints an info message.
func (ui *UI) Info(format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	ui.paint(color.FgCyan).Fprintf(ui.out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Section prints a section header.
func (ui *UI) Section(title string) {
	if ui.jsonMode {
		return
	}
	fmt.Fprintln(ui.out)
	ui.paint(color.FgMagenta, color.Bold).Fprintf(ui.out, "━━━ %s ━━━\n", strings.ToUpper(title))
}

// KeyValue prints a key-value pair.
func (ui *UI) KeyValue(key string, value interface{}) {
	if ui.jsonMode {
		return
	}
	ui.paint(color.FgYellow).Fprintf(ui.out, "  %s: ", key)
	fmt.Fprintf(ui.out, "%v\n", value)
}

// List prints one bullet per item, or "none".
func (ui *UI) List(items []string) {
	if ui.jsonMode {
		return
	}
	if len(items) == 0 {
		fmt.Fprintln(ui.out, "  none")
		return
	}
	for _, item := range items {
		fmt.Fprintf(ui.out, "  • %s\n", item)
	}
}

// Table prints rows aligned under headers.
func (ui *UI) Table(headers []string, rows [][]string) {
	if ui.jsonMode || len(headers) == 0 {
		return
	}
	w := tabwriter.NewWriter(ui.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

// JSON writes v as indented JSON.
func (ui *UI) JSON(v any) error {
	enc := json.NewEncoder(ui.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Report renders a finished classification.
func (ui *UI) Report(rep *classifier.Report) {
	if ui.jsonMode {
		return
	}
	r := rep.Result

	fmt.Fprintln(ui.out)
	ui.paint(color.FgWhite, color.Bold).Fprint(ui.out, "HS CODE ")
	ui.paint(color.FgCyan, color.Bold).Fprintf(ui.out, "%s", r.HSCode)
	fmt.Fprint(ui.out, "  ")
	ui.paint(confidenceColor(r.ConfidenceScore)).Fprintf(ui.out, "%d%% confidence", r.ConfidenceScore)
	fmt.Fprintf(ui.out, "  [%s]\n", r.Source)

	ui.KeyValue("Product", r.ProductName)
	ui.KeyValue("Heading", r.Description)
	ui.KeyValue("Region", rep.Region.DisplayName())
	ui.KeyValue("Duty", r.DutyRate)
	ui.KeyValue("Tax", r.TaxRate)
	if r.SourceReference != "" {
		ui.KeyValue("Reference", r.SourceReference)
	}

	ui.Section("Restrictions")
	ui.List(r.Restrictions)

	ui.Section("Required documents")
	ui.List(r.RequiredDocuments)

	ui.Section("Reasoning")
	fmt.Fprintf(ui.out, "  %s\n", r.Reasoning)

	if len(r.SimilarItems) > 0 {
		ui.Section("Similar items")
		rows := make([][]string, 0, len(r.SimilarItems))
		for _, item := range r.SimilarItems {
			rows = append(rows, []string{item.HSCode, item.Name, item.Reason})
		}
		ui.Table([]string{"HS CODE", "ITEM", "DIFFERENCE"}, rows)
	}

	if len(rep.Citations) > 0 {
		ui.Section("Sources")
		for _, c := range rep.Citations {
			if c.Title != "" {
				fmt.Fprintf(ui.out, "  • %s (%s)\n", c.Title, c.URI)
			} else {
				fmt.Fprintf(ui.out, "  • %s\n", c.URI)
			}
		}
	}

	fmt.Fprintln(ui.out)
	ui.paint(color.Faint).Fprintf(ui.out, "%s via %s in %s\n", rep.ID, rep.Provider, FormatDuration(rep.Elapsed))
}

func confidenceColor(score int) color.Attribute {
	switch {
	case score >= 85:
		return color.FgGreen
	case score >= 60:
		return color.FgYellow
	default:
		return color.FgRed
	}
}

// Spinner wraps a spinner instance for indeterminate progress display.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner returns a spinner on stderr, or nil when output is not interactive.
func (ui *UI) NewSpinner(message string) *Spinner {
	if ui.jsonMode || !IsTerminal() {
		return nil
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = ui.errOut
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	if s != nil {
		s.spinner.Start()
	}
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	if s != nil {
		s.spinner.Stop()
	}
}

// UpdateMessage updates the spinner's message.
func (s *Spinner) UpdateMessage(message string) {
	if s == nil {
		return
	}
	s.spinner.Lock()
	s.spinner.Suffix = " " + message
	s.spinner.Unlock()
}

// NewProgressBar creates a determinate progress bar on stderr.
func (ui *UI) NewProgressBar(total int64, description string) *progressbar.ProgressBar {
	if ui.jsonMode {
		return progressbar.DefaultSilent(total, description)
	}
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(ui.errOut),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(ui.errOut, "\n")
		}),
		progressbar.OptionEnableColorCodes(!ui.noColor),
	)
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

// IsTerminal checks if stderr is a terminal.
func IsTerminal() bool {
	fileInfo, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// describeError turns a classification failure into a one-line message.
func describeError(err error) string {
	switch {
	case domain.IsType(err, domain.ErrorTypeValidation):
		return err.Error()
	case domain.IsType(err, domain.ErrorTypeNoResponse):
		return "the model returned no answer; try again or add more product detail"
	case domain.IsType(err, domain.ErrorTypeUnparseable):
		return "the model answer could not be read; try again"
	case domain.IsType(err, domain.ErrorTypeInvocation):
		return "the model could not be reached; check the API key and network"
	default:
		return err.Error()
	}
}

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/modanna/ShaderConductor/application/job"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD866"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// printDiagnostic writes compiler output, one styled line per line of text.
func printDiagnostic(w io.Writer, diag string, failed bool) {
	style := warnStyle
	if failed {
		style = errorStyle
	}
	for _, line := range strings.Split(strings.TrimRight(diag, "\n"), "\n") {
		if line == "" {
			continue
		}
		fmt.Fprintln(w, style.Render(line))
	}
}

// printReport renders a batch report.
func printReport(w io.Writer, report *job.Report) {
	fmt.Fprintln(w, titleStyle.Render("shaderconductor"))
	for _, t := range report.Tasks {
		status := okStyle.Render("ok")
		if t.Failed() {
			status = errorStyle.Render("FAILED")
		}
		fmt.Fprintf(w, "%s %s\n", status, t.Name)
		if t.Error != "" {
			fmt.Fprintf(w, "  %s\n", errorStyle.Render(t.Error))
		}
		for _, f := range t.Files {
			switch {
			case f.Failed:
				fmt.Fprintf(w, "  %s %s\n", errorStyle.Render("x"), f.Source)
				printIndented(w, f.Diagnostic, errorStyle)
			default:
				fmt.Fprintf(w, "  %s %s -> %s\n", okStyle.Render("+"), f.Source, pathStyle.Render(f.Output))
				printIndented(w, f.Diagnostic, warnStyle)
			}
		}
	}
	summary := fmt.Sprintf("%d jobs, %d failed, %s", len(report.Tasks), report.Failures(), report.Duration.Round(time.Millisecond))
	fmt.Fprintln(w, helpStyle.Render(summary))
}

func printIndented(w io.Writer, text string, style lipgloss.Style) {
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if line != "" {
			fmt.Fprintf(w, "    %s\n", style.Render(line))
		}
	}
}

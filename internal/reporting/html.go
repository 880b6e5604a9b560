package reporting

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
)

func WriteHTML(runID, outDir string, rep *Report) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, runID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	errs, warnings, repairable := rep.Counts()

	// Head + styles
	fmt.Fprintf(f, "<!doctype html><html><head><meta charset='utf-8'><title>%s</title>", html.EscapeString(rep.Document))
	fmt.Fprint(f, "<style>body{font-family:system-ui,Arial,sans-serif;padding:20px;line-height:1.4} table{border-collapse:collapse;margin:8px 0} td,th{border:1px solid #ddd;padding:6px} h1,h2{margin:6px 0 4px} .dim{color:#666} .mono{font-family:ui-monospace,Menlo,Consolas,monospace} .error{color:#b00} .warning{color:#a60}</style>")
	fmt.Fprint(f, "</head><body>")

	fmt.Fprintf(f, "<h1>creaturetime report – <span class='mono'>%s</span></h1>", html.EscapeString(rep.Document))
	fmt.Fprintf(f, "<p class='dim'>Session <span class='mono'>%s</span> &nbsp; %s</p>",
		html.EscapeString(rep.ID), rep.GeneratedAt.Format("2006-01-02 15:04:05Z07:00"))
	fmt.Fprintf(f, "<p>Errors: %d &nbsp; Warnings: %d &nbsp; Repairable: %d</p>", errs, warnings, repairable)
	if b := rep.Repairs; b != nil {
		fmt.Fprintf(f, "<p>Repairs: %d attempted, %d repaired, %d failed, %d skipped</p>",
			b.Attempted, b.Repaired, b.Failed, b.Skipped)
	}

	// Rule selection
	fmt.Fprint(f, "<h2>Rules</h2><table><tr><th>#</th><th>Rule</th><th>Enabled</th></tr>")
	for _, e := range rep.Rules {
		on := "no"
		if e.Enabled {
			on = "yes"
		}
		fmt.Fprintf(f, "<tr><td>%d</td><td>%s</td><td>%s</td></tr>", e.ID, html.EscapeString(e.Name), on)
	}
	fmt.Fprint(f, "</table>")

	if len(rep.Findings) == 0 {
		fmt.Fprint(f, "<h2>Findings</h2><p class='dim'>No findings.</p></body></html>")
		return path, nil
	}
	fmt.Fprint(f, "<h2>Findings</h2><table><tr><th>#</th><th>Severity</th><th>Rule</th><th>Message</th><th>Repair</th></tr>")
	for _, it := range rep.Findings {
		fix := "<span class='dim'>none</span>"
		if it.Repair != nil {
			fix = "<span class='mono'>" + html.EscapeString(it.Repair.String()) + "</span>"
		}
		fmt.Fprintf(f, "<tr><td>%d</td><td class='%s'>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			it.Position,
			it.Severity, it.Severity,
			html.EscapeString(it.Rule),
			html.EscapeString(it.Message),
			fix,
		)
	}
	fmt.Fprint(f, "</table></body></html>")
	return path, nil
}

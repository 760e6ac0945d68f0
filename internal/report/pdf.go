package report

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ════════════════════════════════════════════════════════════════════
// Snapshot export: HTML file, or PDF through an engine found on PATH
// ════════════════════════════════════════════════════════════════════

// pdfEngine is an external HTML to PDF converter.
type pdfEngine struct {
	name     string
	binaries []string
	args     func(in, out string) []string
}

// pdfEngines in order of preference.
var pdfEngines = []pdfEngine{
	{
		name:     "wkhtmltopdf",
		binaries: []string{"wkhtmltopdf"},
		args: func(in, out string) []string {
			return []string{"--page-size", "Letter", "--margin-top", "12mm", "--margin-bottom", "12mm",
				"--encoding", "UTF-8", "--quiet", in, out}
		},
	},
	{
		name:     "chromium",
		binaries: []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"},
		args: func(in, out string) []string {
			return []string{"--headless", "--disable-gpu", "--no-sandbox",
				"--print-to-pdf=" + out, "--print-to-pdf-no-header", "file://" + in}
		},
	},
}

// findPDFEngine returns the first engine with a binary on PATH.
func findPDFEngine() (pdfEngine, string, bool) {
	for _, e := range pdfEngines {
		for _, name := range e.binaries {
			if bin, err := exec.LookPath(name); err == nil {
				return e, bin, true
			}
		}
	}
	return pdfEngine{}, "", false
}

// WriteSnapshot writes html to path: a ".pdf" path is converted with the
// first engine found, anything else is written as-is. It returns the path
// actually written, which ends in ".html" when no PDF engine exists.
func WriteSnapshot(html, path string) (string, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return path, writeHTML(html, path)
	}
	engine, bin, ok := findPDFEngine()
	if !ok {
		out := strings.TrimSuffix(path, filepath.Ext(path)) + ".html"
		return out, writeHTML(html, out)
	}
	return path, convertPDF(engine, bin, html, path)
}

func convertPDF(engine pdfEngine, bin, html, path string) error {
	out, err := filepath.Abs(path)
	if err != nil {
		return eris.Wrapf(err, "resolve %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return eris.Wrap(err, "creating output directory")
	}

	tmp, err := os.CreateTemp("", "refinery-snapshot-*.html")
	if err != nil {
		return eris.Wrap(err, "creating temp HTML")
	}
	defer os.Remove(tmp.Name())
	_, err = tmp.WriteString(html)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return eris.Wrap(err, "writing temp HTML")
	}

	if output, err := exec.Command(bin, engine.args(tmp.Name(), out)...).CombinedOutput(); err != nil {
		return eris.Wrapf(err, "%s failed: %s", engine.name, output)
	}
	if _, err := os.Stat(out); err != nil {
		return eris.Wrapf(err, "%s wrote no PDF", engine.name)
	}
	return nil
}

func writeHTML(html, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "creating output directory")
		}
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return eris.Wrapf(err, "writing %s", path)
	}
	return nil
}

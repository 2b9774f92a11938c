// Package report renders a PipelineReport for the build orchestrator.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"sigs.k8s.io/yaml"

	"github.com/specialistvlad/layerstage/internal/model"
)

func init() {
	pterm.DisableColor()
}

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatTable, FormatJSON, FormatYAML}

// ValidFormat reports whether f is one of Formats.
func ValidFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// Write renders r to w in the given format.
func Write(w io.Writer, r model.PipelineReport, format string) error {
	var (
		out []byte
		err error
	)
	switch format {
	case FormatJSON:
		out, err = json.MarshalIndent(r, "", "  ")
		out = append(out, '\n')
	case FormatYAML:
		out, err = yaml.Marshal(r)
	case FormatTable, "":
		var s string
		s, err = renderTables(r)
		out = []byte(s)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
	if err != nil {
		return fmt.Errorf("render %s report: %w", format, err)
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteFile stores r as JSON at path, replacing any previous report.
func WriteFile(path string, r model.PipelineReport) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, r, FormatJSON); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move report into place: %w", err)
	}
	return nil
}

func renderTables(r model.PipelineReport) (string, error) {
	var out string

	probes := [][]string{{"DEPENDENCY", "LOADED", "VERSION", "DETAIL"}}
	for _, p := range r.Probes {
		detail := p.Location
		if !p.Loaded {
			detail = p.FailureReason
		}
		probes = append(probes, []string{p.Dependency, strconv.FormatBool(p.Loaded), p.Version, detail})
	}
	s, err := table(probes)
	if err != nil {
		return "", err
	}
	out += s

	if len(r.Manifest.Entries) > 0 {
		assets := [][]string{{"ASSET", "DEPENDENCY", "RUNTIME PATH", "SIZE"}}
		for _, e := range r.Manifest.Entries {
			assets = append(assets, []string{string(e.AssetID), e.Dependency, e.RuntimePath, humanize.Bytes(uint64(e.SizeBytes))})
		}
		s, err := table(assets)
		if err != nil {
			return "", err
		}
		out += "\n" + s
	}

	if len(r.AssetErrors) > 0 {
		errs := [][]string{{"ASSET", "DEPENDENCY", "ERROR"}}
		for _, e := range r.AssetErrors {
			errs = append(errs, []string{string(e.Asset), e.Dependency, e.Reason})
		}
		s, err := table(errs)
		if err != nil {
			return "", err
		}
		out += "\n" + s
	}

	if len(r.Natives) > 0 {
		natives := [][]string{{"PACKAGE", "FILE", "BUILT FOR", "MATCHES TARGET"}}
		for _, n := range r.Natives {
			built := model.PlatformDescriptor{ABITag: n.ABITag, PlatformTag: n.PlatformTag}.String()
			natives = append(natives, []string{n.Package, n.FilePath, built, strconv.FormatBool(n.MatchesTarget)})
		}
		s, err := table(natives)
		if err != nil {
			return "", err
		}
		out += "\n" + s
	}

	result := "OK"
	if !r.OK {
		result = fmt.Sprintf("FAILED (%d problems)", len(r.Failures()))
	}
	out += "\nResult: " + result + "\n"
	return out, nil
}

func table(data [][]string) (string, error) {
	s, err := pterm.DefaultTable.WithData(data).WithHasHeader().WithSeparator("  ").Srender()
	if err != nil {
		return "", fmt.Errorf("rendering table: %w", err)
	}
	return s + "\n", nil
}

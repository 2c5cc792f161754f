package plan

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yurifrl/ibcompare/pkg/service"
)

// Defaults apply to every comparison that leaves the field unset.
type Defaults struct {
	LedgerFile string `yaml:"ledger_file"`
	Symbols    string `yaml:"symbols"`
	Pattern    string `yaml:"pattern"`
	Effective  bool   `yaml:"effective"`
}

type Comparison struct {
	Name       string `yaml:"name"`
	Report     string `yaml:"report"`
	ReportsDir string `yaml:"reports_dir"`
	Pattern    string `yaml:"pattern"`
	LedgerFile string `yaml:"ledger_file"`
	Symbols    string `yaml:"symbols"`
	Effective  *bool  `yaml:"effective"`
}

type Plan struct {
	Defaults    Defaults     `yaml:"defaults"`
	Comparisons []Comparison `yaml:"comparisons"`
}

func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	if len(p.Comparisons) == 0 {
		return nil, fmt.Errorf("plan has no comparisons")
	}
	for i := range p.Comparisons {
		c := &p.Comparisons[i]
		if c.Name == "" {
			c.Name = fmt.Sprintf("comparison-%d", i+1)
		}
		if err := p.Validate(*c); err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	return &p, nil
}

// Validate checks a comparison after defaults are applied.
func (p *Plan) Validate(c Comparison) error {
	params := p.Params(c)
	switch {
	case params.ReportPath != "" && params.ReportsDir != "":
		return fmt.Errorf("report and reports_dir are mutually exclusive")
	case params.ReportPath == "" && params.ReportsDir == "":
		return fmt.Errorf("one of report or reports_dir is required")
	case params.Journal == "":
		return fmt.Errorf("ledger_file is required")
	}
	return nil
}

// Params merges c with the plan defaults. Paths starting with ~/ are
// expanded to the home directory.
func (p *Plan) Params(c Comparison) service.Params {
	params := service.Params{
		ReportPath:  expandHome(c.Report),
		ReportsDir:  expandHome(c.ReportsDir),
		Pattern:     firstNonEmpty(c.Pattern, p.Defaults.Pattern),
		SymbolsPath: expandHome(firstNonEmpty(c.Symbols, p.Defaults.Symbols)),
		Journal:     expandHome(firstNonEmpty(c.LedgerFile, p.Defaults.LedgerFile)),
		Effective:   p.Defaults.Effective,
	}
	if c.Effective != nil {
		params.Effective = *c.Effective
	}
	return params
}

func (p *Plan) Print(w io.Writer) {
	for i, c := range p.Comparisons {
		params := p.Params(c)
		source := params.ReportPath
		if source == "" {
			source = params.ReportsDir
		}
		fmt.Fprintf(w, "[%d] %s report=%s ledger=%s effective=%t\n", i+1, c.Name, source, params.Journal, params.Effective)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

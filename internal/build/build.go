// Package build loads the project manifest that drives a compilation:
// which sources to compile, the compiler version constraint the project
// pins, and the EVM revision the generated IR targets.
package build

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml"

	"github.com/vesper-lang/vesper/internal/evm"
)

// Version is the compiler release this tree builds.
const Version = "0.4.2"

// Project is the parsed vesper.toml manifest.
type Project struct {
	Name    string   `toml:"name"`
	Pragma  string   `toml:"pragma"`
	EVM     string   `toml:"evm-version"`
	Sources []string `toml:"sources"`
}

// LoadProject reads and parses a manifest file.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project manifest: %w", err)
	}
	var p Project
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse project manifest %s: %w", path, err)
	}
	return &p, nil
}

// CheckPragma verifies that this compiler release satisfies the project's
// version constraint. An empty pragma accepts any release.
func (p *Project) CheckPragma() error {
	if p.Pragma == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(p.Pragma)
	if err != nil {
		return fmt.Errorf("invalid pragma %q: %w", p.Pragma, err)
	}
	current, err := semver.NewVersion(Version)
	if err != nil {
		return fmt.Errorf("invalid compiler version %q: %w", Version, err)
	}
	if !constraint.Check(current) {
		return fmt.Errorf("compiler %s does not satisfy project pragma %q", Version, p.Pragma)
	}
	return nil
}

// TargetVersion resolves the configured EVM revision, falling back to the
// compiler default when the manifest does not pin one.
func (p *Project) TargetVersion() (evm.Version, error) {
	if p.EVM == "" {
		return evm.Default, nil
	}
	return evm.Parse(p.EVM)
}

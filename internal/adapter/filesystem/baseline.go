package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/geomag-sv-etl/internal/domain"
)

// LoadBaselineJumps reads a baseline-jump table. Files ending in .yaml or
// .yml are parsed as YAML, anything else as CSV. An empty path yields no
// jumps.
func LoadBaselineJumps(path string) ([]domain.BaselineJump, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open baseline file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return domain.ParseBaselineYAML(f)
	default:
		return domain.ParseBaselineCSV(f)
	}
}

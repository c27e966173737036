package filesystem

import (
	"fmt"

	"github.com/couchcryptid/geomag-sv-etl/internal/domain"
)

// LoadActivityIndex reads a "date,ap" index file, plain or compressed. An
// empty path yields a nil index.
func LoadActivityIndex(path string) (domain.ActivityIndex, error) {
	if path == "" {
		return nil, nil
	}
	rc, err := OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open activity index: %w", err)
	}
	defer rc.Close()
	return domain.ParseActivityIndexCSV(rc)
}

// LoadExclusions reads a "date,observatory,component" exclusion list. An
// empty path yields no exclusions.
func LoadExclusions(path string) ([]domain.Exclusion, error) {
	if path == "" {
		return nil, nil
	}
	rc, err := OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open exclusions: %w", err)
	}
	defer rc.Close()
	return domain.ParseExclusionsCSV(rc)
}

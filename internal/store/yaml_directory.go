package store

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"parentdoctor/backend/internal/chat"
)

// YAMLDoctorDirectory reads the doctor list from a file on every call, so
// edits take effect without a restart. Entries marked verified: false are
// skipped; a missing flag counts as verified.
//
//	doctors:
//	  - name: Dr. Emily Park
//	    specialty: Pediatrics
//	    location: Seattle
type YAMLDoctorDirectory struct {
	path string
}

type doctorFile struct {
	Doctors []doctorEntry `yaml:"doctors"`
}

type doctorEntry struct {
	chat.Doctor `yaml:",inline"`
	Verified    *bool `yaml:"verified"`
}

func NewYAMLDoctorDirectory(path string) *YAMLDoctorDirectory {
	return &YAMLDoctorDirectory{path: strings.TrimSpace(path)}
}

func (d *YAMLDoctorDirectory) ListRecommendable(context.Context) ([]chat.Doctor, error) {
	raw, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read doctor directory: %w", chat.ErrStore, err)
	}
	return parseDoctorYAML(raw)
}

func parseDoctorYAML(raw []byte) ([]chat.Doctor, error) {
	var file doctorFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: parse doctor directory: %w", chat.ErrStore, err)
	}
	doctors := make([]chat.Doctor, 0, len(file.Doctors))
	for _, entry := range file.Doctors {
		if entry.Verified != nil && !*entry.Verified {
			continue
		}
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			continue
		}
		doctors = append(doctors, chat.Doctor{
			Name:      name,
			Specialty: strings.TrimSpace(entry.Specialty),
			Location:  strings.TrimSpace(entry.Location),
		})
	}
	return doctors, nil
}

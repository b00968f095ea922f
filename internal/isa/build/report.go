package build

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/blake2b"

	"gpuasm/internal/isa/snapshot"
)

const (
	// ReportVersion is the current version of the report format.
	ReportVersion = 1

	// reportSuffix names the sidecar next to its snapshot.
	reportSuffix = ".build.json"
)

// Report is the sidecar record of how a snapshot was built. It rides
// next to the artifact so tooling can answer what went into a database
// without rebuilding it.
type Report struct {
	Version       int            `json:"version"`
	RunID         string         `json:"runId"`
	CreatedAt     time.Time      `json:"createdAt"`
	ToolVersion   string         `json:"toolVersion"`
	Duration      string         `json:"duration"`
	Checksum      string         `json:"checksum,omitempty"`
	Instructions  int            `json:"instructions"`
	Architectures []string       `json:"architectures"`
	Sources       []SourceReport `json:"sources"`
}

// LoadReport reads the sidecar for the snapshot at output.
// Returns nil without error when no sidecar exists, or when its format
// version is unknown.
func LoadReport(output string) (*Report, error) {
	data, err := os.ReadFile(output + reportSuffix)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading build report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing build report: %w", err)
	}
	if r.Version != ReportVersion {
		return nil, nil
	}
	return &r, nil
}

// Save writes the report next to the snapshot at output.
func (r *Report) Save(output string) error {
	r.Version = ReportVersion

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling build report: %w", err)
	}
	if err := os.WriteFile(output+reportSuffix, data, 0644); err != nil {
		return fmt.Errorf("writing build report: %w", err)
	}
	return nil
}

// SnapshotChecksum digests a snapshot's canonical JSON form, so the
// same content hashes identically whether it was written plain,
// minified, or compressed.
func SnapshotChecksum(s *snapshot.Snapshot) (string, error) {
	data, err := snapshot.Marshal(s, false)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return "blake2b:" + hex.EncodeToString(sum[:]), nil
}

// StaleSources returns the source documents modified after the build,
// including ones that no longer exist. An empty result means the
// snapshot still reflects its inputs.
func (r *Report) StaleSources() []string {
	var stale []string
	for _, s := range r.Sources {
		info, err := os.Stat(s.Path)
		if err != nil || info.ModTime().After(r.CreatedAt) {
			stale = append(stale, s.Path)
		}
	}
	return stale
}

// Age formats how long ago the snapshot was built.
func (r *Report) Age() string {
	d := time.Since(r.CreatedAt)
	if d < time.Minute {
		return "just now"
	}
	return humanDuration(d) + " ago"
}

// humanDuration formats a duration in human-readable form.
func humanDuration(d time.Duration) string {
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

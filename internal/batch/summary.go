package batch

import (
	"encoding/json"
	"fmt"
	"os"
)

// Summary counts batch outcomes.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Cancelled int
	Faces     int
}

// Summarize tallies results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Success:
			s.Succeeded++
			s.Faces += r.Faces
		case r.Error == ErrCancelled.Error():
			s.Cancelled++
		default:
			s.Failed++
		}
	}
	return s
}

// String formats the summary for terminal output.
func (s Summary) String() string {
	out := fmt.Sprintf("%d/%d succeeded, %d faces", s.Succeeded, s.Total, s.Faces)
	if s.Failed > 0 {
		out += fmt.Sprintf(", %d failed", s.Failed)
	}
	if s.Cancelled > 0 {
		out += fmt.Sprintf(", %d cancelled", s.Cancelled)
	}
	return out
}

// ManifestEntry represents one sprite in the output manifest.
type ManifestEntry struct {
	Name    string   `json:"name"`
	Faces   int      `json:"faces"`
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Files   []string `json:"files,omitempty"`
}

// WriteManifest writes results as indented JSON.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		entries[i] = ManifestEntry{
			Name:    r.Name,
			Faces:   r.Faces,
			Success: r.Success,
			Error:   r.Error,
			Files:   r.Files,
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

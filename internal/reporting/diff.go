package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/validation"
)

// Diff compares two reports of the same document, typically before and
// after a repair pass.
type Diff struct {
	BaseID  string        `json:"base_id"`
	HeadID  string        `json:"head_id"`
	Summary DiffSummary   `json:"summary"`
	New     []DiffFinding `json:"new"`
	Removed []DiffFinding `json:"removed"`
	Changed []DiffChanged `json:"changed"`
}

type DiffSummary struct {
	NewCount     int `json:"new"`
	RemovedCount int `json:"removed"`
	ChangedCount int `json:"changed"`
}

type DiffFinding struct {
	Rule       string `json:"rule"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	Repairable bool   `json:"repairable"`
}

type DiffChanged struct {
	Key     string      `json:"key"`
	Base    DiffFinding `json:"base"`
	Head    DiffFinding `json:"head"`
	Changed []string    `json:"fields_changed"`
}

// Compare matches findings by rule and message. Local ids are not stable
// across runs, so they take no part in identity.
func Compare(baseID, headID string, base, head *Report) Diff {
	bm := index(base.Findings)
	hm := index(head.Findings)

	var added, removed []DiffFinding
	var changed []DiffChanged
	for k, hf := range hm {
		bf, ok := bm[k]
		if !ok {
			added = append(added, hf)
			continue
		}
		var fields []string
		if bf.Severity != hf.Severity {
			fields = append(fields, "severity")
		}
		if bf.Repairable != hf.Repairable {
			fields = append(fields, "repairable")
		}
		if len(fields) > 0 {
			changed = append(changed, DiffChanged{Key: k, Base: bf, Head: hf, Changed: fields})
		}
	}
	for k, bf := range bm {
		if _, ok := hm[k]; !ok {
			removed = append(removed, bf)
		}
	}

	byRule := func(s []DiffFinding) func(i, j int) bool {
		return func(i, j int) bool {
			if s[i].Rule == s[j].Rule {
				return s[i].Message < s[j].Message
			}
			return s[i].Rule < s[j].Rule
		}
	}
	sort.Slice(added, byRule(added))
	sort.Slice(removed, byRule(removed))
	sort.Slice(changed, func(i, j int) bool { return changed[i].Key < changed[j].Key })

	return Diff{
		BaseID: baseID, HeadID: headID,
		Summary: DiffSummary{
			NewCount:     len(added),
			RemovedCount: len(removed),
			ChangedCount: len(changed),
		},
		New:     added,
		Removed: removed,
		Changed: changed,
	}
}

func WriteDiffJSON(outDir string, d Diff) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, "diff_"+d.BaseID+"__"+d.HeadID+".json")
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, b, 0o644)
}

func index(items []validation.Item) map[string]DiffFinding {
	m := make(map[string]DiffFinding, len(items))
	for _, it := range items {
		m[it.Rule+"|"+it.Message] = DiffFinding{
			Rule:       it.Rule,
			Severity:   it.Severity.String(),
			Message:    it.Message,
			Repairable: it.Repairable,
		}
	}
	return m
}

// Package scope implements the per-session scope tracker (component E):
// a baseline LOC snapshot of a work directory, change accounting against
// declared file/LOC limits, and the scope-expansion check the policy
// gate consults. A Tracker is per-session state, not safe to share
// across concurrent turns without external synchronization, the way
// internal/rag/packs' directory walker in the teacher repo is a
// one-shot, caller-owned scan.
package scope

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/daxcore/dax/internal/globmatch"
	"github.com/daxcore/dax/pkg/models"
)

// skipDirs are directory names never descended into while building the
// baseline snapshot.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, "dist": true, "build": true, ".next": true,
}

// Limits is the declared budget a Tracker enforces.
type Limits struct {
	MaxFiles        int
	MaxLOC          int
	AllowedPatterns []string
}

// Tracker accounts file and LOC deltas against a baseline snapshot of a
// work directory.
type Tracker struct {
	workDir string
	limits  Limits

	mu            sync.Mutex
	baseline      map[string]int // path -> LOC at initialize()
	filesModified map[string]struct{}
	filesAdded    int
	filesRemoved  int
	locAdded      int
	locRemoved    int
}

// New constructs a Tracker rooted at workDir. Call Initialize before
// tracking any changes.
func New(workDir string, limits Limits) *Tracker {
	return &Tracker{
		workDir:       workDir,
		limits:        limits,
		filesModified: make(map[string]struct{}),
	}
}

// Initialize scans the work directory once, establishing the baseline
// path -> LOC map that subsequent changes are measured against.
func (t *Tracker) Initialize() error {
	baseline := make(map[string]int)
	err := filepath.WalkDir(t.workDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			if path != t.workDir && skipDirs[entry.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(t.workDir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		loc, err := countLines(path)
		if err != nil {
			return nil
		}
		baseline[rel] = loc
		return nil
	})
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.baseline = baseline
	t.mu.Unlock()
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines++
	}
	return lines, scanner.Err()
}

// matchesAllowed reports whether rel matches any of the tracker's
// allowed glob patterns. "**" matches any sequence including "/"; "*"
// matches any sequence excluding "/" — the same semantics the policy
// gate uses for never_touch/require_approval globs.
func matchesAllowed(patterns []string, rel string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if globmatch.Match(p, rel) {
			return true
		}
	}
	return false
}

// TrackFileChange records a candidate write at path with its old and
// new line counts. Changes outside every allowed pattern are ignored —
// out of tracked scope — and never affect the metrics.
func (t *Tracker) TrackFileChange(path string, oldLOC, newLOC int, existed bool) {
	rel := filepath.ToSlash(path)
	if !matchesAllowed(t.limits.AllowedPatterns, rel) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, tracked := t.filesModified[rel]; !tracked {
		t.filesModified[rel] = struct{}{}
	}

	switch {
	case !existed:
		t.filesAdded++
		t.locAdded += newLOC
	case newLOC == 0:
		t.filesRemoved++
		t.locRemoved += oldLOC
	default:
		delta := newLOC - oldLOC
		if delta > 0 {
			t.locAdded += delta
		} else if delta < 0 {
			t.locRemoved += -delta
		}
	}
}

// GetStatus returns the current metrics, the limits they're checked
// against, and any resulting warnings.
func (t *Tracker) GetStatus() models.ScopeStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	touched := make(map[string]struct{}, len(t.filesModified))
	for k := range t.filesModified {
		touched[k] = struct{}{}
	}
	metrics := models.ScopeMetrics{
		FilesModified: touched,
		FilesAdded:    t.filesAdded,
		FilesRemoved:  t.filesRemoved,
		LOCAdded:      t.locAdded,
		LOCRemoved:    t.locRemoved,
	}
	metrics.TotalFiles = len(touched)
	metrics.TotalLOC = metrics.ChangedLOC()

	var warnings []string
	within := true
	if t.limits.MaxLOC > 0 && metrics.ChangedLOC() > t.limits.MaxLOC {
		warnings = append(warnings, "changed_loc exceeds max_loc")
		within = false
	}
	if t.limits.MaxFiles > 0 && metrics.TouchedFilesCount() > t.limits.MaxFiles {
		warnings = append(warnings, "touched_files_count exceeds max_files")
		within = false
	}

	return models.ScopeStatus{
		Metrics: metrics,
		Limits: models.ScopeLimits{
			MaxFiles: t.limits.MaxFiles,
			MaxLOC:   t.limits.MaxLOC,
		},
		Warnings:     warnings,
		WithinLimits: within,
	}
}

// CheckScopeExpansion reports whether the tracker's current status has
// grown past its declared limits, and why.
func (t *Tracker) CheckScopeExpansion() models.ScopeExpansionCheck {
	status := t.GetStatus()
	check := models.ScopeExpansionCheck{
		NeedsApproval:  !status.WithinLimits,
		Reason:         strings.Join(status.Warnings, "; "),
		CurrentFiles:   status.Limits.MaxFiles,
		RequestedFiles: status.Metrics.TouchedFilesCount(),
		CurrentLOC:     status.Limits.MaxLOC,
		RequestedLOC:   status.Metrics.ChangedLOC(),
	}
	return check
}

// Baseline returns the LOC recorded for rel in the initial scan, and
// whether rel existed at all.
func (t *Tracker) Baseline(rel string) (loc int, existed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	loc, existed = t.baseline[filepath.ToSlash(rel)]
	return loc, existed
}

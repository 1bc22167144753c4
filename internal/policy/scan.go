// Package policy implements the workspace sensitive-content scan that backs
// the compliance gate. A non-empty scan result always overrides the
// compliance role's own verdict.
package policy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
)

// Pattern is one labelled sensitive-content matcher.
type Pattern struct {
	Label string
	Re    *regexp.Regexp
}

// DefaultPatterns flags credentials commonly committed by accident.
var DefaultPatterns = []Pattern{
	{Label: "AWS access key", Re: regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{Label: "Private key block", Re: regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH )?PRIVATE KEY-----`)},
	{Label: "Generic secret assignment", Re: regexp.MustCompile(`(?i)\b(api[_-]?key|token|secret|password)\b\s*[:=]\s*['"][^'"]{8,}['"]`)},
}

// DefaultIncludes are doublestar globs, relative to the workspace root.
var DefaultIncludes = []string{
	"**/*.py", "**/*.sh", "**/*.md", "**/*.yaml", "**/*.yml",
	"**/*.json", "**/*.tf", "**/*.tfvars", "**/*.env", "**/*.txt",
}

// DefaultExcludedDirs are directory names never descended into.
var DefaultExcludedDirs = []string{
	".git", "__pycache__", ".venv", "venv", "node_modules", ".mypy_cache", ".pytest_cache",
}

const (
	// DefaultMaxFileBytes skips files larger than 512 KiB.
	DefaultMaxFileBytes = 512 * 1024

	// DefaultMaxFindings stops the scan after this many findings.
	DefaultMaxFindings = 25
)

var errFindingLimit = errors.New("finding limit reached")

// Finding is one sensitive match.
type Finding struct {
	Path  string // slash-separated, relative to the scan root
	Line  int
	Label string
}

// String renders "path:line (label)".
func (f Finding) String() string {
	return fmt.Sprintf("%s:%d (%s)", f.Path, f.Line, f.Label)
}

// Scanner walks a workspace looking for sensitive content.
type Scanner struct {
	Patterns     []Pattern
	Includes     []string
	ExcludedDirs []string
	MaxFileBytes int64
	MaxFindings  int

	Logger *slog.Logger
}

// NewScanner returns a Scanner with the default tables.
func NewScanner() *Scanner {
	return &Scanner{
		Patterns:     DefaultPatterns,
		Includes:     DefaultIncludes,
		ExcludedDirs: DefaultExcludedDirs,
		MaxFileBytes: DefaultMaxFileBytes,
		MaxFindings:  DefaultMaxFindings,
	}
}

// Scan walks root and returns findings in walk order. Unreadable, oversized
// and non-UTF-8 files are skipped. An error is returned only when the walk
// itself cannot proceed or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context, root string) ([]Finding, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	excluded := make(map[string]bool, len(s.ExcludedDirs))
	for _, d := range s.ExcludedDirs {
		excluded[d] = true
	}

	var findings []Finding

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			s.logger().Debug("scan walk error", "path", path, "error", walkErr)
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && excluded[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !s.included(rel) {
			return nil
		}

		for _, f := range s.scanFile(path, rel, d) {
			findings = append(findings, f)
			if s.MaxFindings > 0 && len(findings) >= s.MaxFindings {
				return errFindingLimit
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errFindingLimit) {
		return findings, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return findings, nil
}

func (s *Scanner) included(rel string) bool {
	for _, pattern := range s.Includes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (s *Scanner) scanFile(path, rel string, d fs.DirEntry) []Finding {
	info, err := d.Info()
	if err != nil {
		return nil
	}
	if s.MaxFileBytes > 0 && info.Size() > s.MaxFileBytes {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger().Debug("scan read failed", "path", rel, "error", err)
		return nil
	}
	if !utf8.Valid(data) {
		return nil
	}

	var out []Finding
	for i, line := range strings.Split(string(data), "\n") {
		for _, p := range s.Patterns {
			if p.Re.MatchString(line) {
				out = append(out, Finding{Path: rel, Line: i + 1, Label: p.Label})
			}
		}
	}
	return out
}

func (s *Scanner) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Evidence renders findings as the block appended to the compliance snapshot.
func Evidence(findings []Finding) string {
	if len(findings) == 0 {
		return ""
	}
	lines := make([]string, len(findings))
	for i, f := range findings {
		lines[i] = f.String()
	}
	return "Sensitive-content scan findings:\n- " + strings.Join(lines, "\n- ")
}

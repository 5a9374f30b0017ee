package eval

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/google/uuid"

	"dkb/internal/logging"
)

// GenerateOptions controls query-set mining from git history.
type GenerateOptions struct {
	RepoRoot    string
	Limit       int // maximum records to emit
	MaxCommits  int // how far back to look
	MinCoChange int // minimum co-change count for a temporal record
}

// DefaultGenerateOptions returns sane mining defaults.
func DefaultGenerateOptions(repoRoot string) GenerateOptions {
	return GenerateOptions{
		RepoRoot:    repoRoot,
		Limit:       50,
		MaxCommits:  500,
		MinCoChange: 3,
	}
}

type commit struct {
	subject string
	files   []string
}

// GenerateQuerySet mines a labeled query set out of git history.
// Files that repeatedly change together become temporal queries with
// the partner files as weak labels; commit subjects become semantic
// queries labeled with the files that commit touched. Nobody curates
// these labels, which is the point: they are cheap and plentiful.
func GenerateQuerySet(opts GenerateOptions, logger *logging.Logger) (*QuerySet, error) {
	commits, err := readCommits(opts.RepoRoot, opts.MaxCommits)
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, fmt.Errorf("no usable commits found in %s", opts.RepoRoot)
	}

	logger.Debug("mined git history", map[string]interface{}{
		"commits": len(commits),
	})

	qs := &QuerySet{Name: "generated-from-git"}
	qs.Queries = append(qs.Queries, temporalRecords(commits, opts)...)
	qs.Queries = append(qs.Queries, semanticRecords(commits, opts)...)

	if opts.Limit > 0 && len(qs.Queries) > opts.Limit {
		qs.Queries = qs.Queries[:opts.Limit]
	}

	if err := qs.Validate(); err != nil {
		return nil, err
	}
	return qs, nil
}

// readCommits parses `git log --name-only` into commits with their
// changed files. Merge commits and commits touching very many files
// carry little signal and are skipped.
func readCommits(repoRoot string, maxCommits int) ([]commit, error) {
	cmd := exec.Command("git", "log",
		fmt.Sprintf("--max-count=%d", maxCommits),
		"--no-merges",
		"--name-only",
		"--pretty=format:%x01%s")
	cmd.Dir = repoRoot

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git log failed: %w", err)
	}

	var (
		commits []commit
		current *commit
	)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "\x01") {
			if current != nil && len(current.files) > 0 {
				commits = append(commits, *current)
			}
			current = &commit{subject: strings.TrimSpace(strings.TrimPrefix(line, "\x01"))}
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" || current == nil {
			continue
		}
		current.files = append(current.files, line)
	}
	if current != nil && len(current.files) > 0 {
		commits = append(commits, *current)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse git log output: %w", err)
	}

	// Large commits (renames, vendoring, formatting sweeps) drown the signal
	filtered := commits[:0]
	for _, c := range commits {
		if len(c.files) <= 20 {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// temporalRecords builds queries from file pairs that co-changed at
// least MinCoChange times.
func temporalRecords(commits []commit, opts GenerateOptions) []QueryRecord {
	partners := make(map[string]map[string]int)
	for _, c := range commits {
		for i, a := range c.files {
			for _, b := range c.files[i+1:] {
				if a == b {
					continue
				}
				addPartner(partners, a, b)
				addPartner(partners, b, a)
			}
		}
	}

	files := make([]string, 0, len(partners))
	for f := range partners {
		files = append(files, f)
	}
	sort.Strings(files)

	var records []QueryRecord
	for _, file := range files {
		var expected []string
		for partner, count := range partners[file] {
			if count >= opts.MinCoChange {
				expected = append(expected, partner)
			}
		}
		if len(expected) == 0 {
			continue
		}
		sort.Strings(expected)
		records = append(records, QueryRecord{
			ID:        uuid.NewString(),
			Query:     fmt.Sprintf("what usually changes together with %s", file),
			Expected:  expected,
			Dimension: "temporal",
		})
	}
	return records
}

func addPartner(partners map[string]map[string]int, a, b string) {
	if partners[a] == nil {
		partners[a] = make(map[string]int)
	}
	partners[a][b]++
}

// semanticRecords builds queries from commit subjects, labeled with
// the files each commit touched.
func semanticRecords(commits []commit, opts GenerateOptions) []QueryRecord {
	var records []QueryRecord
	for _, c := range commits {
		// Commits touching a couple of files give truth sets too small
		// to score against; very short subjects ("wip", "fix") make
		// useless queries
		if len(c.files) < 3 {
			continue
		}
		subject := strings.TrimSpace(c.subject)
		if len(strings.Fields(subject)) < 3 {
			continue
		}
		expected := append([]string(nil), c.files...)
		sort.Strings(expected)
		records = append(records, QueryRecord{
			ID:        uuid.NewString(),
			Query:     subject,
			Expected:  expected,
			Dimension: "semantic",
		})
	}
	return records
}

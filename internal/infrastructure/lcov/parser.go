// Package lcov implements a parser for LCOV coverage artifacts.
//
// pytest-cov emits this format via --cov-report=lcov. The parser keeps
// per-line hit data rather than collapsing to counters, because the
// aggregator needs the line sets to union coverage across cells without
// double counting.
package lcov

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/matrixctl/internal/domain"
	"github.com/felixgeelhaar/matrixctl/internal/pathutil"
)

// Parser implements ArtifactParser for LCOV format.
type Parser struct{}

// New creates a new LCOV parser.
func New() *Parser {
	return &Parser{}
}

// Parse reads one LCOV artifact into a line-level profile.
func (p *Parser) Parse(path string) (domain.Profile, error) {
	cleanPath, err := pathutil.ValidatePath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	file, err := os.Open(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return nil, fmt.Errorf("open lcov file: %w", err)
	}
	defer file.Close()

	profile := make(domain.Profile)
	scanner := bufio.NewScanner(file)

	var currentFile string
	var lines domain.FileCoverage

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "TN:"):
			// Test name - ignore

		case strings.HasPrefix(line, "SF:"):
			// Source file - start of a new file record
			currentFile = strings.TrimPrefix(line, "SF:")
			lines = make(domain.FileCoverage)

		case strings.HasPrefix(line, "DA:"):
			// Data line: DA:line_number,execution_count[,checksum]
			parts := strings.Split(strings.TrimPrefix(line, "DA:"), ",")
			if len(parts) >= 2 && lines != nil {
				num, err := strconv.Atoi(parts[0])
				if err != nil {
					continue
				}
				count, _ := strconv.Atoi(parts[1])
				// Re-parsing the same record keeps a hit a hit.
				lines[num] = lines[num] || count > 0
			}

		case line == "end_of_record":
			if currentFile != "" {
				mergeFile(profile, currentFile, lines)
			}
			currentFile = ""
			lines = nil

			// Branch (BRDA, BRF, BRH) and function (FN, FNDA, FNF, FNH)
			// records are ignored; only line coverage aggregates.
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lcov file: %w", err)
	}

	// Handle case where file doesn't end with end_of_record
	if currentFile != "" {
		mergeFile(profile, currentFile, lines)
	}

	return profile, nil
}

// mergeFile folds a record into the profile. An artifact may carry
// multiple records for the same source file.
func mergeFile(profile domain.Profile, file string, lines domain.FileCoverage) {
	dst := profile[file]
	if dst == nil {
		profile[file] = lines
		return
	}
	for num, hit := range lines {
		dst[num] = dst[num] || hit
	}
}

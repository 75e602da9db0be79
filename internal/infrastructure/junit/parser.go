// Package junit reads JUnit XML test reports.
//
// pytest writes this format via --junitxml. The runner uses it to carry
// per-test pass/fail data into job results; a test that failed is data,
// not an execution error.
package junit

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/felixgeelhaar/matrixctl/internal/domain"
	"github.com/felixgeelhaar/matrixctl/internal/pathutil"
)

// junitReport mirrors the XML structure. pytest may emit a bare
// <testsuite> root or wrap suites in <testsuites>.
type junitReport struct {
	XMLName xml.Name
	Suites  []junitSuite `xml:"testsuite"`
	// Set when the root element is itself a testsuite.
	Cases []junitCase `xml:"testcase"`
}

type junitSuite struct {
	Name  string      `xml:"name,attr"`
	Cases []junitCase `xml:"testcase"`
}

type junitCase struct {
	ClassName string        `xml:"classname,attr"`
	Name      string        `xml:"name,attr"`
	Failure   *junitDetail  `xml:"failure"`
	Error     *junitDetail  `xml:"error"`
	Skipped   *junitSkipped `xml:"skipped"`
}

type junitDetail struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

type junitSkipped struct {
	Message string `xml:"message,attr"`
}

// ParseFile reads a JUnit XML report and returns the per-test results in
// document order. Skipped tests are omitted.
func ParseFile(path string) ([]domain.TestResult, error) {
	cleanPath, err := pathutil.ValidatePath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	raw, err := os.ReadFile(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return nil, fmt.Errorf("open junit file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes JUnit XML from memory.
func Parse(raw []byte) ([]domain.TestResult, error) {
	var report junitReport
	if err := xml.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode junit xml: %w", err)
	}

	var results []domain.TestResult
	appendCases := func(cases []junitCase) {
		for _, c := range cases {
			if c.Skipped != nil {
				continue
			}
			results = append(results, domain.TestResult{
				Name:   qualifiedName(c),
				Passed: c.Failure == nil && c.Error == nil,
			})
		}
	}

	appendCases(report.Cases)
	for _, suite := range report.Suites {
		appendCases(suite.Cases)
	}
	return results, nil
}

func qualifiedName(c junitCase) string {
	if c.ClassName == "" {
		return c.Name
	}
	return c.ClassName + "." + c.Name
}

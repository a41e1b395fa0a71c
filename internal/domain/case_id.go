package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var caseIDExpr = regexp.MustCompile(`^(\d{4})/(\d+)-(\d+)$`)

// CaseID is a legal-process identifier (NPJ) in the form YYYY/NNN-VVV.
type CaseID string

// ParseCaseID validates the NPJ format.
func ParseCaseID(value string) (CaseID, error) {
	value = strings.TrimSpace(value)
	if !caseIDExpr.MatchString(value) {
		return "", &ParseError{Field: "case id", Value: value, Err: fmt.Errorf("expected YYYY/NNN-VVV")}
	}
	return CaseID(value), nil
}

// Parts splits the identifier into year, number and variation.
func (c CaseID) Parts() (year, number string, variation int, err error) {
	m := caseIDExpr.FindStringSubmatch(string(c))
	if m == nil {
		return "", "", 0, &ParseError{Field: "case id", Value: string(c), Err: fmt.Errorf("expected YYYY/NNN-VVV")}
	}
	variation, err = strconv.Atoi(m[3])
	if err != nil {
		return "", "", 0, &ParseError{Field: "case id", Value: string(c), Err: err}
	}
	return m[1], m[2], variation, nil
}

// Folder is the identifier with separators replaced, safe for use as a directory name.
func (c CaseID) Folder() string {
	return strings.NewReplacer("/", "_", "-", "_").Replace(string(c))
}

func (c CaseID) String() string {
	return string(c)
}

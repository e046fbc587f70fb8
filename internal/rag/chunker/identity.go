package chunker

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	UnknownPatientID = "unknown"
	GenericDocType   = "medical_document"
)

var digitRun = regexp.MustCompile(`\d+`)

type typeRule struct {
	keyword string
	docType string
}

// first matching keyword wins, so "lab_history" is a lab result
var docTypeRules = []typeRule{
	{"intake", "patient_information"},
	{"vitals", "vital_signs"},
	{"lab", "lab_results"},
	{"imaging", "diagnostic_imaging"},
	{"history", "past_medical_history"},
	{"transcript", "transcript"},
}

// InferPatientID returns the first run of digits in the file's base name.
func InferPatientID(fileName string) string {
	if id := digitRun.FindString(baseName(fileName)); id != "" {
		return id
	}
	return UnknownPatientID
}

func InferDocType(fileName string) string {
	lower := strings.ToLower(baseName(fileName))
	for _, rule := range docTypeRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.docType
		}
	}
	return GenericDocType
}

// MakeDocID builds "<patient>_<TYPE>_<index>" with spaces in the type
// replaced by underscores.
func MakeDocID(patientID, docType string, index int) string {
	return fmt.Sprintf("%s_%s_%d", patientID, strings.ToUpper(strings.ReplaceAll(docType, " ", "_")), index)
}

func baseName(name string) string {
	if name == "" {
		return ""
	}
	return filepath.Base(name)
}

package model

import (
	"fmt"
)

// Severity grades validation findings. Errors block plan and apply,
// warnings are surfaced but non-blocking, infos only show up at high
// verbosity.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	}
	return "INFO"
}

// Finding is one validation result.
type Finding struct {
	Severity Severity
	Message  string
}

// ValidationContext collects findings while the expected organization is
// checked, before any network traffic.
type ValidationContext struct {
	// Plan is the organization's billing plan, used to gate features
	// that only exist on paid plans.
	Plan string

	findings []Finding
}

func (vc *ValidationContext) Infof(format string, args ...any) {
	vc.findings = append(vc.findings, Finding{SeverityInfo, fmt.Sprintf(format, args...)})
}

func (vc *ValidationContext) Warnf(format string, args ...any) {
	vc.findings = append(vc.findings, Finding{SeverityWarning, fmt.Sprintf(format, args...)})
}

func (vc *ValidationContext) Errorf(format string, args ...any) {
	vc.findings = append(vc.findings, Finding{SeverityError, fmt.Sprintf(format, args...)})
}

// Findings returns everything collected so far, in emission order.
func (vc *ValidationContext) Findings() []Finding {
	return vc.findings
}

// ErrorCount returns the number of error-severity findings.
func (vc *ValidationContext) ErrorCount() int {
	n := 0
	for _, f := range vc.findings {
		if f.Severity == SeverityError {
			n++
		}
	}
	return n
}

// validEnum checks a set-valued string field against its documented
// enumeration and reports an error when it falls outside.
func validEnum(vc *ValidationContext, where, field string, v Value[string], allowed ...string) {
	if !v.IsSet() {
		return
	}
	for _, a := range allowed {
		if v.Get() == a {
			return
		}
	}
	vc.Errorf("%s: %s has value %q, must be one of %v", where, field, v.Get(), allowed)
}

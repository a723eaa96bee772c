package classifier

// Risk thresholds applied to the worst-case field score. A submission at or
// above MaliciousThreshold is rejected regardless of credential validity.
const (
	MaliciousThreshold  = 0.7
	SuspiciousThreshold = 0.3
)

// Verdict is the ordered risk classification of a login submission.
// Severity increases with the value, so comparisons like v >= Suspicious are
// meaningful.
type Verdict int

const (
	VerdictSafe Verdict = iota
	VerdictSuspicious
	VerdictMalicious
)

func (v Verdict) String() string {
	switch v {
	case VerdictSafe:
		return "safe"
	case VerdictSuspicious:
		return "suspicious"
	case VerdictMalicious:
		return "malicious"
	default:
		return "unknown"
	}
}

package classifier

import "errors"

var errNilModel = errors.New("classifier model is nil")

// Result is the full classification outcome for one submission. Verdict is
// the ordered severity used by decision logic; IsMalicious and IsSuspicious
// are the independent flags persisted on the attempt record. Both flags
// derive from the same risk score, so a malicious result also carries
// IsSuspicious.
type Result struct {
	Verdict      Verdict
	Risk         float64
	IsMalicious  bool
	IsSuspicious bool
}

// AttemptClassifier reduces the two submitted fields to a single risk score
// and maps it through threshold policy. It owns only the injection-risk
// portion of the verdict; user existence and credential correctness are
// supplied by the caller.
type AttemptClassifier struct {
	scorer Scorer
}

func NewAttemptClassifier(scorer Scorer) *AttemptClassifier {
	return &AttemptClassifier{scorer: scorer}
}

// Classify scores identifier and secret independently and takes the maximum:
// one injected field is enough for an attack, so the weaker signal must not
// dilute the stronger one. A risk at or above MaliciousThreshold yields a
// malicious verdict regardless of credential validity; below it, an unknown
// user or a credential mismatch downgrades to suspicious.
func (c *AttemptClassifier) Classify(identifier, secret string, userExists, credentialsMatch bool) Result {
	risk := max(c.scorer.Score(identifier), c.scorer.Score(secret))

	res := Result{
		Risk:         risk,
		IsMalicious:  risk >= MaliciousThreshold,
		IsSuspicious: risk >= SuspiciousThreshold,
	}

	switch {
	case res.IsMalicious:
		res.Verdict = VerdictMalicious
	case !userExists, !credentialsMatch:
		res.Verdict = VerdictSuspicious
		res.IsSuspicious = true
	default:
		res.Verdict = VerdictSafe
	}

	return res
}

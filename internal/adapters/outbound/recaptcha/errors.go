package recaptcha

import "strings"

// VerificationError represents a rejected token: the human check failed,
// not the transport.
type VerificationError struct {
	Codes []string
}

func (e *VerificationError) Error() string {
	if len(e.Codes) == 0 {
		return "verification failed"
	}

	return "verification failed: " + strings.Join(e.Codes, ", ")
}

func (e *VerificationError) IsVerificationFailed() {}

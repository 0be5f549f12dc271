package merge

import "github.com/Csabesz1130/eventhint/pkg/model"

// ConfidenceInput carries the signals calculate_event_confidence in
// backend/app/utils/confidence.py used beyond the Event itself: whether the
// source message came from a trusted sender, and the OCR confidence of the
// attachment (if any) the draft was extracted from.
type ConfidenceInput struct {
	TrustedSender bool
	OCRConfidence float64 // 1.0 when the draft did not come from OCR text
}

// CalculateConfidence reproduces the additive-then-multiplicative scoring
// from the original service: points are awarded for field completeness and
// extraction method, then the sum is scaled down by a sub-1.0 OCR
// confidence, and finally capped at 1.0.
func CalculateConfidence(ev model.Event, in ConfidenceInput) float64 {
	score := 0.0

	if !ev.Start.IsZero() {
		score += 0.3
		if ev.End != nil {
			score += 0.05
		}
	}
	if len(ev.Title) > 3 {
		score += 0.2
	}
	if ev.Location != "" || ev.OnlineURL != "" {
		score += 0.1
	}

	switch ev.Method {
	case model.MethodDeterministic:
		score += 0.2
	case model.MethodLLM:
		score += 0.15
	case model.MethodHybrid:
		score += 0.25
	}

	if in.TrustedSender {
		score += 0.05
	}

	if in.OCRConfidence > 0 && in.OCRConfidence < 1.0 {
		score *= in.OCRConfidence
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// ShouldAutoApprove mirrors should_auto_approve: auto-approval requires the
// owning user to have opted in, and then either a high-confidence draft or
// a merely-good-confidence draft from a trusted sender.
func ShouldAutoApprove(user model.User, confidence float64, trustedSender bool) bool {
	if !user.AutoApproveEnabled {
		return false
	}
	if confidence >= 0.9 {
		return true
	}
	return trustedSender && confidence >= 0.7
}

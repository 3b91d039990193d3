package service

import "github.com/amirulmuuminin/tahfidz-exam-api/internal/models"

// classifyPortion maps a validated (exam kind, juz portion) pair to its
// capacity class. A 5-juz exam is always a group of exclusive parts; the
// juz portion only matters for single exams. Inputs reach here already
// validated, so the fallback arm is unreachable in practice.
func classifyPortion(kind models.ExamKind, juzPortion string) models.PortionClass {
	if kind == models.ExamKindMultiPart {
		return models.PortionMultiPartExclusive
	}
	if juzPortion == "half" {
		return models.PortionSharedHalf
	}
	return models.PortionExclusive
}

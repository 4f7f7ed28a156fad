package imagegen

import (
	"strings"

	"ytthumbs/internal/domain"
)

var (
	successStatuses = map[string]struct{}{"COMPLETED": {}, "SUCCESS": {}, "SUCCESSFUL": {}}
	failureStatuses = map[string]struct{}{"FAILED": {}, "ERROR": {}}
)

// NormalizeStatus maps a backend status string onto the closed TaskStatus set.
// Matching ignores case and surrounding whitespace. Anything outside the known
// success and failure vocabularies, including an empty string, is Pending.
func NormalizeStatus(raw string) domain.TaskStatus {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if _, ok := successStatuses[key]; ok {
		return domain.TaskStatusSucceeded
	}
	if _, ok := failureStatuses[key]; ok {
		return domain.TaskStatusFailed
	}
	return domain.TaskStatusPending
}

package tasks

import (
	"strings"

	"github.com/chepyr/task-manager/shared/models"
)

// Payload is a decoded JSON request body. Values keep their JSON types, so a
// title sent as a number is seen as a float64 rather than dropped.
type Payload map[string]any

var statusRuleMessage = "Status must be one of: " + joinStatuses()

func joinStatuses() string {
	names := make([]string, 0, len(models.TaskStatuses))
	for _, s := range models.TaskStatuses {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

// Validate checks p against the task rules and returns the violations in rule
// order. An empty result means p is valid. Only create payloads (isUpdate
// false) must carry a title.
func Validate(p Payload, isUpdate bool) []string {
	errs := []string{}

	title, titleSet := p["title"]
	if !isUpdate && (!titleSet || !truthy(title) || !isString(title)) {
		errs = append(errs, "Title is required and must be a string")
	}
	if truthy(title) && !isString(title) {
		errs = append(errs, "Title must be a string")
	}

	if desc := p["description"]; truthy(desc) && !isString(desc) {
		errs = append(errs, "Description must be a string")
	}

	if status := p["status"]; truthy(status) {
		s, ok := status.(string)
		if !ok || !models.TaskStatus(s).Valid() {
			errs = append(errs, statusRuleMessage)
		}
	}

	return errs
}

// truthy follows JSON value truthiness: null, false, 0 and "" are falsy,
// everything else (including empty arrays and objects) is truthy.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case int:
		return val != 0
	default:
		return true
	}
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

// nonEmptyString returns v when it is a non-empty string.
func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok && s != ""
}

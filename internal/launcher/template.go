package launcher

import (
	"strconv"
	"strings"
)

const (
	SeqMarker  = "{}"
	JobMarker  = "{#}"
	SlotMarker = "{%}"
)

func HasMarker(arg string) bool {
	return strings.Contains(arg, SeqMarker) ||
		strings.Contains(arg, JobMarker) ||
		strings.Contains(arg, SlotMarker)
}

// Expand substitutes the markers of template for step. When no argument holds
// a marker the sequence value is appended as the last argument.
func Expand(template []string, step Step) []string {
	r := strings.NewReplacer(
		JobMarker, strconv.Itoa(step.JobNum),
		SlotMarker, strconv.Itoa(step.Slot),
		SeqMarker, strconv.Itoa(step.Seq),
	)

	argv := make([]string, 0, len(template)+1)
	found := false
	for _, arg := range template {
		if HasMarker(arg) {
			found = true
		}
		argv = append(argv, r.Replace(arg))
	}
	if !found {
		argv = append(argv, strconv.Itoa(step.Seq))
	}
	return argv
}

// CommandKey identifies a template across launches, e.g. for resuming.
func CommandKey(template []string) string {
	return strings.Join(template, "\x1f")
}

package help

import (
	"strings"

	"github.com/iancoleman/strcase"
)

// CaseField names the field holding a oneof's active case.
func CaseField(oneof string) string {
	return strcase.ToLowerCamel(oneof) + "Case_"
}

// SlotField names the field holding a oneof's shared value.
func SlotField(oneof string) string {
	return strcase.ToLowerCamel(oneof) + "_"
}

// CaseConst names the case constant of a oneof member.
func CaseConst(field string) string {
	return strcase.ToScreamingSnake(field)
}

func NotSetConst(oneof string) string {
	return strcase.ToScreamingSnake(oneof) + "_NOT_SET"
}

// PlanFileName derives the output name of a plan document from a .proto path.
func PlanFileName(protoPath, suffix string) string {
	return strings.TrimSuffix(protoPath, ".proto") + suffix
}

package enums

import "fmt"

// FormStage is a step of the order form workflow.
type FormStage string

const (
	FormStageDetails FormStage = "details"
	FormStagePayment FormStage = "payment"
	FormStageSummary FormStage = "summary"
)

// formStageOrder is the linear order of the workflow.
var formStageOrder = []FormStage{
	FormStageDetails,
	FormStagePayment,
	FormStageSummary,
}

// String implements fmt.Stringer.
func (f FormStage) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FormStage.
func (f FormStage) IsValid() bool {
	return f.Index() >= 0
}

// Index returns the position of the stage in the workflow, or -1.
func (f FormStage) Index() int {
	for i, candidate := range formStageOrder {
		if candidate == f {
			return i
		}
	}
	return -1
}

// Next returns the following stage and false when f is the last one.
func (f FormStage) Next() (FormStage, bool) {
	idx := f.Index()
	if idx < 0 || idx+1 >= len(formStageOrder) {
		return f, false
	}
	return formStageOrder[idx+1], true
}

// ParseFormStage converts raw input into a FormStage.
func ParseFormStage(value string) (FormStage, error) {
	for _, candidate := range formStageOrder {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid form stage %q", value)
}

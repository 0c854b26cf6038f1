// internal/models/step.go
package models

import "fmt"

// Step is the position in the booking sequence.
type Step int

const (
	StepBasicInfo Step = iota + 1
	StepPersonalDetails
	StepTattooDetails
	StepReferences
	StepReview
)

const (
	FirstStep = StepBasicInfo
	LastStep  = StepReview
)

func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

func (s Step) String() string {
	switch s {
	case StepBasicInfo:
		return "BasicInfo"
	case StepPersonalDetails:
		return "PersonalDetails"
	case StepTattooDetails:
		return "TattooDetails"
	case StepReferences:
		return "References"
	case StepReview:
		return "Review"
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

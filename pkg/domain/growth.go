package domain

const (
	// InitialPatchNumber tags the step-0 snapshot, taken before any patch is applied.
	InitialPatchNumber = 0

	// FinalPatchNumber tags the terminal snapshot of a turn.
	FinalPatchNumber = -1
)

// TreeGrowthStep is one immutable snapshot in the growth history of a turn.
type TreeGrowthStep struct {
	StepNumber  int       `json:"stepNumber"`
	Turn        int       `json:"turn"`
	PatchNumber int       `json:"patchNumber"`
	Tree        *TreeNode `json:"tree"`
}

// IsFinal reports whether the step is the terminal snapshot of its turn.
func (s TreeGrowthStep) IsFinal() bool {
	return s.PatchNumber == FinalPatchNumber
}

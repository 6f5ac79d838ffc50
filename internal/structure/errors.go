package structure

import (
	"errors"
	"fmt"
)

// ErrNoHeadings is returned when relevel or normalize is requested on a
// document without any headings.
var ErrNoHeadings = errors.New("document has no headings")

// LevelOverflowError rejects a relevel that would push any heading
// outside the valid 1..6 range. The operation is atomic: no heading is
// rewritten when this error is returned.
type LevelOverflowError struct {
	Target        int
	AffectedCount int
	DeepestTitle  string
	WouldBecome   int
}

func (e *LevelOverflowError) Error() string {
	return fmt.Sprintf("releveling to H%d would push heading %q to level %d (valid range 1-6, %d headings affected)",
		e.Target, e.DeepestTitle, e.WouldBecome, e.AffectedCount)
}

// ValidationError declines a normalization because pre-existing
// structural issues make the requested shift ambiguous.
type ValidationError struct {
	Reason string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("structure validation failed: %s (%d issues)", e.Reason, len(e.Issues))
}

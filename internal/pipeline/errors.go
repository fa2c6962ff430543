package pipeline

import "fmt"

// ProjectError reports a project whose document set could not be produced.
// The rest of the run is unaffected.
type ProjectError struct {
	Project string
	Err     error
}

func (e *ProjectError) Error() string {
	return fmt.Sprintf("project %s: %v", e.Project, e.Err)
}

func (e *ProjectError) Unwrap() error {
	return e.Err
}

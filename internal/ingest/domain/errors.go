package domain

import "fmt"

// SourceUnreadableError marks a wholly unreadable source file. It is fatal:
// the pipeline run aborts instead of producing a partial snapshot.
type SourceUnreadableError struct {
	Path string
	Err  error
}

func (e *SourceUnreadableError) Error() string {
	return fmt.Sprintf("source %s unreadable: %v", e.Path, e.Err)
}

func (e *SourceUnreadableError) Unwrap() error {
	return e.Err
}

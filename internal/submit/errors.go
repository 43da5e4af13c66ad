package submit

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/Tiliavir/rsg-workblocks/internal/model"
)

// ErrAuthentication is returned when the token endpoint refuses the credentials.
var ErrAuthentication = errors.New("authentication failed")

// EntityResolutionError reports a filtered lookup that did not match exactly one object.
type EntityResolutionError struct {
	Path    string
	Filters url.Values
	Records []model.Record
}

func (e *EntityResolutionError) Error() string {
	return fmt.Sprintf("incorrect number of objects returned from %s?%s: expected one, got %d",
		e.Path, e.Filters.Encode(), len(e.Records))
}

// DuplicateSubmissionError reports workblocks already present for the day.
type DuplicateSubmissionError struct {
	Date string
}

func (e *DuplicateSubmissionError) Error() string {
	return fmt.Sprintf("workblocks already exist for %s", e.Date)
}

// ProjectNotFoundError reports a note project slug that does not resolve to one project.
type ProjectNotFoundError struct {
	Slug string
	Err  error
}

func (e *ProjectNotFoundError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("project not found: %s", e.Slug)
	}
	return fmt.Sprintf("project not found: %s: %v", e.Slug, e.Err)
}

func (e *ProjectNotFoundError) Unwrap() error { return e.Err }

// RemoteWriteError reports a rejected workblock creation. Workblocks created
// before it remain on the server.
type RemoteWriteError struct {
	Slug    string
	Created int
	Err     error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("creating workblock for project %s failed after %d created: %v", e.Slug, e.Created, e.Err)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

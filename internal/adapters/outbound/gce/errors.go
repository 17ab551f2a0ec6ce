package gce

import (
	"errors"

	"google.golang.org/api/googleapi"
)

// InstanceNotFoundError represents a "resource does not exist" case that is
// not an error for callers deleting or reconciling.
type InstanceNotFoundError struct{}

func (e *InstanceNotFoundError) Error() string {
	return "instance not found"
}

func (e *InstanceNotFoundError) IsNotFound() {}

var errInstanceNotFound = &InstanceNotFoundError{}

// isGoogleNotFound reports whether the compute API answered 404.
func isGoogleNotFound(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 404
	}

	return false
}

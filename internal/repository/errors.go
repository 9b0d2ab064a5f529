package repository

import (
    "errors"
    "strings"
)

// ErrForbidden is returned when an operation is attempted on a resource
// belonging to a different team. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot be performed because
// of conflicting state, such as claiming a square the user already holds
// an active claim on. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// isDuplicate reports whether err is a unique-constraint violation.  The
// duplicate-insert pattern is how completion recording and membership
// creation stay idempotent, so these errors are recovered locally rather
// than surfaced.  MySQL reports error 1062 ("Duplicate entry"); the
// sqlite driver the tests run on says "UNIQUE constraint failed".
func isDuplicate(err error) bool {
    if err == nil {
        return false
    }
    msg := err.Error()
    return strings.Contains(msg, "1062") ||
        strings.Contains(msg, "Duplicate entry") ||
        strings.Contains(msg, "UNIQUE constraint")
}

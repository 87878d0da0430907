package models

import (
	"errors"
	"fmt"
)

var ErrValidation = errors.New("validation failed")
var ErrInvalidFollow = errors.New("invalid follow")
var ErrInvalidQuery = errors.New("invalid query")
var ErrNotAllowed = errors.New("not allowed")

var ErrBlankContent = fmt.Errorf("%w: content is blank", ErrValidation)
var ErrContentTooLong = fmt.Errorf("%w: content exceeds maximum length", ErrValidation)
var ErrInvalidUserID = fmt.Errorf("%w: user id is blank", ErrValidation)
var ErrSelfFollow = fmt.Errorf("%w: users cannot follow themselves", ErrInvalidFollow)

// AccessError is returned when Requester may not read Owner's timeline.
type AccessError struct {
	Requester UserID
	Owner     UserID
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("user %s is not allowed to view the timeline of %s", e.Requester, e.Owner)
}

func (e *AccessError) Is(target error) bool {
	return target == ErrNotAllowed
}

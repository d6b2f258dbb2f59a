package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates the caller is not allowed to perform the operation.
var ErrForbidden = errors.New("operation forbidden")

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvalidCandidateSet indicates a matching candidate set is empty on one side
// or references items that are not currently unmatched.
var ErrInvalidCandidateSet = errors.New("invalid candidate set")

// ErrConcurrentClaim indicates another in-flight operation claimed one of the
// referenced items first. Retryable.
var ErrConcurrentClaim = errors.New("concurrent claim conflict")

// ErrSelfApproval indicates an approver attempted to approve their own match.
var ErrSelfApproval = errors.New("self approval forbidden")

// ErrInvalidStateTransition indicates a lifecycle transition that the state
// machine does not permit.
var ErrInvalidStateTransition = errors.New("invalid state transition")

// ErrDuplicateException indicates an open or investigating exception already
// references the same transaction.
var ErrDuplicateException = errors.New("duplicate exception for transaction")

// ErrStoreUnavailable indicates the backing store could not be reached. Transient;
// callers may retry with backoff.
var ErrStoreUnavailable = errors.New("store unavailable")

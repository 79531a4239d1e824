package service

import "errors"

// Sentinel errors surfaced by the assessment services. Handlers map these
// onto response.ErrCode values; anything else is an internal error.
var (
	// ErrExamNotFound means the exam id does not exist in the catalog.
	ErrExamNotFound = errors.New("exam not found")

	// ErrExamClosed is the policy rejection for submissions outside the
	// exam's open window (or against a non-active exam). Terminal — the
	// caller must not be invited to retry.
	ErrExamClosed = errors.New("exam is outside its open window")

	// ErrNoQuestions means the exam has an empty question set and can
	// never be graded.
	ErrNoQuestions = errors.New("exam has no questions")

	// ErrResultExists is the duplicate-submission rejection. The existing
	// result is untouched; this is the at-most-once enforcement point.
	ErrResultExists = errors.New("a result already exists for this student and exam")

	// ErrResultNotFound covers both a missing result id and a result owned
	// by a different student — ownership failures are not distinguishable
	// to the caller.
	ErrResultNotFound = errors.New("result not found")
)

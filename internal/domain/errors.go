package domain

import "errors"

var (
	// ErrNoQuestions is returned when a language has no question content.
	ErrNoQuestions = errors.New("no questions found")
	// ErrSessionNotFound is returned when an exam session does not exist.
	ErrSessionNotFound = errors.New("exam session not found")
	// ErrSessionFinished is returned for actions on an already-submitted session.
	ErrSessionFinished = errors.New("exam session already finished")
	// ErrEmailTaken is returned when registering an already-known email.
	ErrEmailTaken = errors.New("email already taken")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized is returned for missing/expired bearer credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrResultNotFound indicates the requested result id is unknown to the user.
	ErrResultNotFound = errors.New("result not found")
	// ErrUserNotFound indicates the token subject no longer exists.
	ErrUserNotFound = errors.New("user not found")
)

package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrInvalid
	ErrNotFound
	ErrTooMany
	ErrInternal
	ErrEmptyDocument
	ErrConfiguration
	ErrCollaborator
	ErrInvalidFile
)

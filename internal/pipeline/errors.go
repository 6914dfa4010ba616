package pipeline

import "errors"

var (
	// ErrPageTooShort means the fetched page had too little text to process.
	// The page is probably rendered by JavaScript or blocks bots.
	ErrPageTooShort = errors.New("page text is too short to process")
	// ErrNoJobs means the model found no job postings on the page.
	ErrNoJobs = errors.New("no job postings found on the page")
	// ErrEmptyEmail means the model returned an empty email.
	ErrEmptyEmail = errors.New("empty email generated")
)

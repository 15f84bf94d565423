package cmd

const (
	// Success is the same as EXIT_SUCCESS in C
	Success = iota

	// BadArgs passed to cli; not our fault.
	BadArgs

	// BadFile means the capture is damaged or no known format.
	BadFile

	// Unsupported means the capture uses something we cannot handle.
	Unsupported

	// UnknownError is an uncategorized error, probably our fault.
	UnknownError
)

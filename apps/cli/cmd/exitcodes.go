package cmd

// Exit codes for hitwire CLI
const (
	// ExitSuccess indicates every transaction completed
	ExitSuccess = 0

	// ExitCheckFailure indicates an HTTP error status with --fail, or a failed threshold
	ExitCheckFailure = 1

	// ExitSetupError indicates an invalid URI, scheme or description file
	ExitSetupError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitTransportError indicates a transaction ended with a timeout, abort or network error
	ExitTransportError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code for an error returned from a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return "exit status " + itoa(e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

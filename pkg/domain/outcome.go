package domain

// Command is a fully resolved process invocation.
type Command struct {
	Name string
	Args []string
	Env  []string
}

// String renders the command line the way a user would type it.
func (c Command) String() string {
	return JoinCommandLine(append([]string{c.Name}, c.Args...))
}

// ProcessOutcome is what an external process left behind.
type ProcessOutcome struct {
	// ExitCode is nil when the process terminated abnormally (e.g. killed by
	// a signal) and no exit status could be determined.
	ExitCode *int
	Stdout   string
	Stderr   string

	// TimedOut is set when the process was stopped because its context
	// ended, not when it exited on its own around the same time.
	TimedOut bool
}

// Succeeded reports a zero exit status.
func (o ProcessOutcome) Succeeded() bool {
	return o.ExitCode != nil && *o.ExitCode == 0
}

// CleanOrUnknownExit reports a zero or indeterminate exit status.
func (o ProcessOutcome) CleanOrUnknownExit() bool {
	return o.ExitCode == nil || *o.ExitCode == 0
}

// ExitStatus returns an outcome's exit code pointer for a given value.
func ExitStatus(code int) *int {
	return &code
}

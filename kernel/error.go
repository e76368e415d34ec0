package kernel

// Error describes a kernel error. Kernel errors are declared as package-level
// pointers to Error values so they can be returned before any heap exists;
// errors.New is never used by kernel code.
type Error struct {
	// The subsystem that reported the error.
	Module string

	// The error message.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

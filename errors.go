package movefcg

import "errors"

var (
	// ErrPathNotFound is returned when the project root does not exist.
	ErrPathNotFound = errors.New("path not found")
	// ErrNotADirectory is returned when the project root is a file.
	ErrNotADirectory = errors.New("not a directory")
	// ErrFunctionNotFound is the expected outcome of a query that matches
	// nothing. It is not a system failure.
	ErrFunctionNotFound = errors.New("function not found")
	// ErrModuleNotFound is returned by module lookups that match nothing.
	ErrModuleNotFound = errors.New("module not found")
	// ErrAmbiguousName is returned under AmbiguityError when a name matches
	// more than one function.
	ErrAmbiguousName = errors.New("ambiguous function name")
)

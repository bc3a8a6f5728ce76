// Package errors provides structured, actionable error messages for the
// rxstate tooling.
//
// Every usage fault raised by the reactive engine carries a stable code
// (R001, R002, ...). This package maps those codes, and the codes of the
// scenario and CLI layers, to an explanation and a fix suggestion.
//
// # Error Categories
//
//   - fault: usage faults raised by the reactive store
//   - scenario: malformed or failing scenario files
//   - config: rxstate.json problems
//   - cli: command-line misuse
//
// # Usage
//
//	err := errors.FromFault(fault).
//	    WithLocation("scenarios/diff.yaml", 14, 5)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR R001: Cell holds no value of the requested type
//	//
//	//   scenarios/diff.yaml:14:5
//	//   ...
//	//   Hint: Create the cell with NewAtom or NewReaction before reading it, or use SoftGet.
package errors

// Package doctagserr collects the error kinds that cross subsystem
// boundaries. Callers discriminate kinds with errors.Is/errors.As rather than
// inspecting error strings or the originating package.
package doctagserr

import "errors"

// Sentinel kinds. Wrap these with fmt.Errorf("%w: ...", Kind, ...) to add context
// while keeping errors.Is(err, doctagserr.KindX) working.
var (
	// ErrInvalidManifest marks a malformed sidecar manifest. The manifest
	// parser handles this locally (log and treat as empty); it is exported
	// so tests and tools can assert on the failure mode.
	ErrInvalidManifest = errors.New("doctags: invalid manifest")

	// ErrNotAnIndex is returned when Create targets a directory that exists
	// but carries no management marker. Fatal to the create operation.
	ErrNotAnIndex = errors.New("doctags: not a managed index directory")

	// ErrBadQuery marks a query that failed to compile. Recoverable:
	// interactive callers keep showing their previous results.
	ErrBadQuery = errors.New("doctags: bad query")

	// ErrIndexIO marks a read/write failure against the index store. Fatal.
	ErrIndexIO = errors.New("doctags: index I/O failure")

	// ErrFS marks a base-directory canonicalization or mount failure. Fatal.
	ErrFS = errors.New("doctags: filesystem error")

	// ErrEntryNotFound marks a per-entry lookup miss in the tag virtual
	// filesystem. The kernel adapter maps this to ENOENT.
	ErrEntryNotFound = errors.New("doctags: entry not found")
)

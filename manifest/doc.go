// Package manifest loads declarative task files and executes them through
// the launch facade.  A manifest is an ordered list of commands with optional
// per-task environment, working directory and failure policy; tasks marked as
// session commands share one local shell so that state such as the working
// directory persists between them.
package manifest

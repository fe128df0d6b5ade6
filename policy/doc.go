// Package policy provides optional declarative rules that can be applied on
// top of the launch facade – for example to block selected executables or to
// require interactive approval before a child process is created.
package policy

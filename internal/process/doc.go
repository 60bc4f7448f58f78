// Package process starts renderer processes in their own process group and
// terminates them, either by group (scoped to one job) or by executable name.
package process

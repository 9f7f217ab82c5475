// Package ui styles CLI output with [lipgloss].
//
// A [Palette] holds named styles for titles, success and failure lines, warnings and help text.
// The package level helpers ([Title], [OK], [Err], [Warn], [Help]) render with the default palette.
// [Session] formats guard [session.Event] values for the verbose refresh trace.
package ui

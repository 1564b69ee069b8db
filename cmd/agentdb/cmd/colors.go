package cmd

import "github.com/fatih/color"

// color disables itself when NO_COLOR is set or stdout is not a terminal
var (
	infoColor    = color.New(color.FgHiBlack)
	promptColor  = color.New(color.FgCyan)
	warningColor = color.New(color.FgRed)
	successColor = color.New(color.FgGreen)
)

// Info returns text colored in gray for informational messages
func Info(text string) string {
	return infoColor.Sprint(text)
}

// Prompt returns text colored in cyan for table and file names
func Prompt(text string) string {
	return promptColor.Sprint(text)
}

// Warning returns text colored in red for warnings and errors
func Warning(text string) string {
	return warningColor.Sprint(text)
}

// Success returns text colored in green
func Success(text string) string {
	return successColor.Sprint(text)
}

package common

import (
	"fmt"
	"strings"

	"identity-merge-go/internal/models"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// PrintIdentity prints one identity with its contact links as a box
func PrintIdentity(identity IdentityInfo, links []models.ContactLink) {
	fmt.Printf("\n┌─ Identity: %s (%s)\n", identity.Username, identity.Email)
	fmt.Printf("│  ID: %s\n", identity.Id)
	fmt.Printf("│  Linked identities: %t\n", identity.Linked)
	fmt.Println("├" + strings.Repeat("─", DefaultWidth-2))
	for i, link := range links {
		role := "secondary"
		if link.IsPrimary {
			role = "primary"
		}
		fmt.Printf("%s %-40s %s\n", BoxPrefix(i == len(links)-1), link.Email, role)
	}
}

// FormatStep renders a merge step report on one line
func FormatStep(step models.StepReport) string {
	mark := "✓"
	if step.Status != "ok" {
		mark = "✗"
	}
	kind := "best-effort"
	if step.Critical {
		kind = "critical"
	}

	line := fmt.Sprintf("%s %-28s %-11s affected=%d", mark, step.Name, kind, step.Affected)
	if step.Conflicts > 0 {
		line += fmt.Sprintf(" conflicts=%d", step.Conflicts)
	}
	if step.Error != "" {
		line += " error=" + step.Error
	}
	return line
}

// PrintSteps prints the merge step reports
func PrintSteps(steps []models.StepReport) {
	for _, step := range steps {
		fmt.Println(FormatStep(step))
	}
}

// Package templates holds the HTML components of the preview UI.
//
// Components are written in preview.templ; preview_templ.go is generated
// from it and committed. Run go generate after editing the .templ file.
package templates

//go:generate templ generate

import "github.com/JonMunkholm/emailpreview/internal/core"

// PreviewParams is everything the preview page shows.
type PreviewParams struct {
	SessionID string
	Snapshot  core.Snapshot
	// Message is a user-facing error for the current phase, if any.
	Message core.UserMessage
	// Patterns marks cells holding a valid address. Zero value uses the defaults.
	Patterns core.Patterns
}

func phaseLabel(p core.Phase) string {
	switch p {
	case core.PhaseLoading:
		return "Reading file…"
	case core.PhaseReady:
		return "Preview ready"
	case core.PhaseError:
		return "Could not read file"
	default:
		return "No file selected"
	}
}

// Package ui renders enrichment progress and export summaries in the terminal.
//
// The progress view is a bubbletea program (Elm architecture) that runs a [Job] in the background:
//   - progress updates flow from the job through a buffered channel and arrive as [Msg] values
//   - a spinner and a progress bar (charmbracelet/bubbles) follow the batch phase
//   - q or ctrl+c cancels the job's context; the view exits once the job returns
//
// [RenderSummary] prints the figures computed by [tasks.Summarize] with the shared lipgloss [Palette].
package ui

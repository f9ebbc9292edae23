package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/enrichr/internal/tasks"
)

const barWidth = 30

// RenderSummary renders the export figures as a plain terminal report.
func RenderSummary(s tasks.Summary) string {
	var b strings.Builder

	b.WriteString(styles.Title("Dataset summary"))
	b.WriteString("\n")

	rows := [][2]string{
		{"Tracks", fmt.Sprintf("%d", s.TotalTracks)},
		{"Unique artists", fmt.Sprintf("%d", s.UniqueArtists)},
		{"Top region", s.TopRegion},
		{"Average duration", s.AverageDuration},
		{"Countries", fmt.Sprintf("%d", s.Countries)},
	}
	if len(s.TopCountries) > 0 {
		rows = append(rows, [2]string{"Top country", fmt.Sprintf("%s (%.1f %%)", s.TopCountries[0].Code, s.TopCountryShare)})
	}
	for _, r := range rows {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, styles.label.Render(r[0]), styles.OK(r[1])))
		b.WriteString("\n")
	}

	if len(s.TopCountries) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.Title("Top countries"))
		b.WriteString("\n")

		most := s.TopCountries[0].Count
		for _, c := range s.TopCountries {
			b.WriteString(fmt.Sprintf("%-4s %s %d\n", c.Code, styles.bar.Render(bar(c.Count, most)), c.Count))
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.Title("Average popularity by year"))
	b.WriteString("\n")
	for _, y := range s.PopularityByYear {
		line := fmt.Sprintf("%d %s %6.2f", y.Year, styles.bar.Render(bar(int(y.Popularity), 100)), y.Popularity)
		if y.Tracks == 0 {
			line = styles.Help(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(s.TopGenres) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.Title("Genres by popularity"))
		b.WriteString("\n")
		for _, g := range s.TopGenres {
			b.WriteString(fmt.Sprintf("%-20s %6.2f  %s\n", g.Genre, g.Popularity,
				styles.Help(fmt.Sprintf("%d tracks, dance %.0f%%, energy %.0f%%", g.Tracks, g.Danceability*100, g.Energy*100))))
		}
	}

	return b.String()
}

// bar draws n against total as a fixed-width row of blocks.
func bar(n, total int) string {
	if total <= 0 || n <= 0 {
		return strings.Repeat(" ", barWidth)
	}
	filled := min(n*barWidth/total, barWidth)
	return strings.Repeat("█", filled) + strings.Repeat(" ", barWidth-filled)
}

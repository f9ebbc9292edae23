package tasks

import (
	"cmp"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/desertthunder/enrichr/internal/models"
)

const (
	summaryFirstYear = 2000
	summaryLastYear  = 2023
	topCountries     = 10
	topGenres        = 10
)

var artistSeparator = regexp.MustCompile(`,|;| feat\. | & `)

// CountryCount is the number of exported tracks carrying a country code.
type CountryCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// YearPopularity is the mean popularity of the tracks released in Year, 0 when there are none.
type YearPopularity struct {
	Year       int     `json:"year"`
	Popularity float64 `json:"popularity"`
	Tracks     int     `json:"tracks"`
}

// GenreStats aggregates the tracks of one genre.
type GenreStats struct {
	Genre        string  `json:"genre"`
	Tracks       int     `json:"tracks"`
	Popularity   float64 `json:"popularity"`
	Danceability float64 `json:"danceability"`
	Energy       float64 `json:"energy"`
}

// Summary contains the headline figures of an export.
type Summary struct {
	TotalTracks      int              `json:"total_tracks"`
	UniqueArtists    int              `json:"unique_artists"`
	TopRegion        string           `json:"top_region"`
	AverageDuration  string           `json:"average_duration"`
	Countries        int              `json:"countries"`
	TopCountries     []CountryCount   `json:"top_countries"`
	TopCountryShare  float64          `json:"top_country_share"` // percent of all tracks
	PopularityByYear []YearPopularity `json:"popularity_by_year"`
	TopGenres        []GenreStats     `json:"top_genres"`
}

// Summarize computes the dashboard figures for exported tracks.
func Summarize(tracks []models.ExportedTrack) Summary {
	s := Summary{
		TotalTracks:     len(tracks),
		UniqueArtists:   countArtists(tracks),
		TopRegion:       mostFrequent(lo.Map(tracks, func(t models.ExportedTrack, _ int) string { return t.Region })),
		AverageDuration: averageDuration(tracks),
	}

	countries := countByFirstSeen(lo.Map(tracks, func(t models.ExportedTrack, _ int) string {
		if t.CountryCode == "" {
			return models.DefaultCountryCode
		}
		return t.CountryCode
	}))
	s.Countries = len(countries)
	if len(countries) > 0 {
		s.TopCountryShare = float64(countries[0].Count) / float64(len(tracks)) * 100
	}
	s.TopCountries = countries[:min(topCountries, len(countries))]

	s.PopularityByYear = popularityByYear(tracks)
	s.TopGenres = genreStats(tracks)
	return s
}

func countArtists(tracks []models.ExportedTrack) int {
	seen := make(map[string]struct{})
	for _, t := range tracks {
		if t.Artists == "" {
			continue
		}
		for _, name := range artistSeparator.Split(t.Artists, -1) {
			if name = strings.TrimSpace(name); name != "" {
				seen[name] = struct{}{}
			}
		}
	}
	return len(seen)
}

// mostFrequent returns the first value to reach the highest count, or "-" for an empty list.
func mostFrequent(values []string) string {
	if len(values) == 0 {
		return "-"
	}

	counts := make(map[string]int, len(values))
	best, record := values[0], 1
	for _, v := range values {
		counts[v]++
		if counts[v] > record {
			best, record = v, counts[v]
		}
	}
	return best
}

// countByFirstSeen counts values and sorts them by count, ties keeping first-seen order.
func countByFirstSeen(values []string) []CountryCount {
	var counts []CountryCount
	index := make(map[string]int)
	for _, v := range values {
		i, ok := index[v]
		if !ok {
			index[v] = len(counts)
			counts = append(counts, CountryCount{Code: v})
			i = len(counts) - 1
		}
		counts[i].Count++
	}

	slices.SortStableFunc(counts, func(a, b CountryCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return counts
}

// averageDuration averages "m:ss" values over all tracks; malformed values count as zero.
func averageDuration(tracks []models.ExportedTrack) string {
	if len(tracks) == 0 {
		return "0:00"
	}

	total := 0
	for _, t := range tracks {
		total += durationSeconds(t.DurationFmt)
	}

	avg := int(math.Round(float64(total) / float64(len(tracks))))
	return fmt.Sprintf("%d:%02d", avg/60, avg%60)
}

func durationSeconds(v string) int {
	m, s, ok := strings.Cut(v, ":")
	if !ok {
		return 0
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	seconds, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return minutes*60 + seconds
}

func popularityByYear(tracks []models.ExportedTrack) []YearPopularity {
	out := make([]YearPopularity, 0, summaryLastYear-summaryFirstYear+1)
	byYear := lo.GroupBy(tracks, func(t models.ExportedTrack) string { return t.Year })

	for year := summaryFirstYear; year <= summaryLastYear; year++ {
		yp := YearPopularity{Year: year}
		if group := byYear[strconv.Itoa(year)]; len(group) > 0 {
			yp.Tracks = len(group)
			yp.Popularity = float64(lo.SumBy(group, func(t models.ExportedTrack) int { return t.Popularity })) / float64(len(group))
		}
		out = append(out, yp)
	}
	return out
}

// genreStats ranks genres by mean popularity.
func genreStats(tracks []models.ExportedTrack) []GenreStats {
	withGenre := lo.Filter(tracks, func(t models.ExportedTrack, _ int) bool { return t.Genre != "" })
	groups := lo.GroupBy(withGenre, func(t models.ExportedTrack) string { return t.Genre })

	stats := make([]GenreStats, 0, len(groups))
	for genre, group := range groups {
		n := float64(len(group))
		stats = append(stats, GenreStats{
			Genre:        genre,
			Tracks:       len(group),
			Popularity:   float64(lo.SumBy(group, func(t models.ExportedTrack) int { return t.Popularity })) / n,
			Danceability: lo.SumBy(group, func(t models.ExportedTrack) float64 { return deref(t.Danceability) }) / n,
			Energy:       lo.SumBy(group, func(t models.ExportedTrack) float64 { return deref(t.Energy) }) / n,
		})
	}

	slices.SortFunc(stats, func(a, b GenreStats) int {
		if c := cmp.Compare(b.Popularity, a.Popularity); c != 0 {
			return c
		}
		return cmp.Compare(a.Genre, b.Genre)
	})
	return stats[:min(topGenres, len(stats))]
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

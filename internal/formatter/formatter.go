// package formatter renders movie data as plain text, CSV, Markdown or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/shared"
)

// Supported output formats
const (
	FormatText     = "text"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Formats lists the accepted format names.
var Formats = []string{FormatText, FormatCSV, FormatMarkdown, FormatJSON}

// ParseFormat normalizes a format name. "md" and "txt" are accepted as aliases.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatText, "txt":
		return FormatText, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, s, strings.Join(Formats, ", "))
	}
}

// MoviesToCSV converts movies to CSV with columns: IMDb ID, Title, Genres, Ranking, Ranking Value, Admin Review, YouTube ID, Poster
func MoviesToCSV(movies []models.Movie) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"IMDb ID", "Title", "Genres", "Ranking", "Ranking Value", "Admin Review", "YouTube ID", "Poster"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, m := range movies {
		record := []string{
			m.ImdbID,
			m.Title,
			strings.Join(m.GenreNames(), "; "),
			m.Ranking.RankingName,
			strconv.Itoa(m.Ranking.RankingValue),
			m.AdminReview,
			m.YouTubeID,
			m.PosterPath,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// MoviesToMarkdown renders movies as a Markdown list under heading title.
//
// When trailerFormat is set, titles link to the trailer URL built from each movie's YouTube id.
func MoviesToMarkdown(title string, movies []models.Movie, trailerFormat string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Movies**: %d\n\n", len(movies)))

	for i, m := range movies {
		name := m.Title
		if trailerFormat != "" && m.YouTubeID != "" {
			name = fmt.Sprintf("[%s](%s)", m.Title, shared.TrailerURL(trailerFormat, m.YouTubeID))
		}
		buf.WriteString(fmt.Sprintf("%d. %s (%s)", i+1, name, m.ImdbID))
		if genres := m.GenreNames(); len(genres) > 0 {
			buf.WriteString(" - " + strings.Join(genres, ", "))
		}
		if m.Ranking.RankingName != "" {
			buf.WriteString(fmt.Sprintf(" [%s]", m.Ranking.RankingName))
		}
		buf.WriteString("\n")
		if m.AdminReview != "" {
			buf.WriteString(fmt.Sprintf("   > %s\n", m.AdminReview))
		}
	}

	return buf.Bytes(), nil
}

// MoviesToText renders movies as a numbered plain text list.
func MoviesToText(movies []models.Movie) ([]byte, error) {
	var buf bytes.Buffer

	for i, m := range movies {
		buf.WriteString(fmt.Sprintf("%d. %s (%s)", i+1, m.Title, m.ImdbID))
		if genres := m.GenreNames(); len(genres) > 0 {
			buf.WriteString(" - " + strings.Join(genres, ", "))
		}
		if m.Ranking.RankingName != "" {
			buf.WriteString(fmt.Sprintf(" [%s]", m.Ranking.RankingName))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// MovieToText renders a single movie with all its fields.
func MovieToText(m *models.Movie, trailerURL string) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Title: %s\n", m.Title))
	buf.WriteString(fmt.Sprintf("IMDb: %s\n", m.ImdbID))
	buf.WriteString(fmt.Sprintf("Genres: %s\n", strings.Join(m.GenreNames(), ", ")))
	if m.Ranking.RankingName != "" {
		buf.WriteString(fmt.Sprintf("Ranking: %s (%d)\n", m.Ranking.RankingName, m.Ranking.RankingValue))
	}
	if m.AdminReview != "" {
		buf.WriteString(fmt.Sprintf("Review: %s\n", m.AdminReview))
	}
	buf.WriteString(fmt.Sprintf("Poster: %s\n", m.PosterPath))
	if trailerURL != "" {
		buf.WriteString(fmt.Sprintf("Trailer: %s\n", trailerURL))
	}

	return buf.Bytes()
}

// GenresToText renders genres one per line as "id. name".
func GenresToText(genres []models.Genre) []byte {
	var buf bytes.Buffer
	for _, g := range genres {
		buf.WriteString(fmt.Sprintf("%d. %s\n", g.GenreID, g.GenreName))
	}
	return buf.Bytes()
}

// RenderMovies renders movies in format. Markdown output uses title as its heading.
func RenderMovies(format, title string, movies []models.Movie, trailerFormat string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return MoviesToCSV(movies)
	case FormatMarkdown:
		return MoviesToMarkdown(title, movies, trailerFormat)
	case FormatJSON:
		return shared.MarshalJSON(movies, true)
	default:
		return MoviesToText(movies)
	}
}

// WriteMovies renders movies in format and writes them to path.
func WriteMovies(movies []models.Movie, format, title, trailerFormat, path string) (string, error) {
	data, err := RenderMovies(format, title, movies, trailerFormat)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}

// DownloadImage downloads an image (e.g. a movie poster) from the given URL and returns the raw bytes
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

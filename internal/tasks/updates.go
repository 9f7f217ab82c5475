package tasks

import (
	"fmt"

	"github.com/desertthunder/reelx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ListMovies Phase = iota
	FetchMovie
	WriteOutput
	FetchHealth
	FetchMovies
	FetchGenres
	FetchRecommended
)

func (p Phase) String() string {
	switch p {
	case ListMovies:
		return "list_movies"
	case FetchMovie:
		return "fetch_movie"
	case WriteOutput:
		return "write_output"
	case FetchHealth:
		return "fetch_health"
	case FetchMovies:
		return "fetch_movies"
	case FetchGenres:
		return "fetch_genres"
	case FetchRecommended:
		return "fetch_recommended"
	default:
		return ""
	}
}

func listingUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: ListMovies, Step: 1, Total: 1, Message: "Listing movies..."}
}

func operationUpdate(endpoint endpointOperation, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   endpoint.phase,
		Step:    step,
		Total:   total,
		Message: endpoint.message,
	}
}

func fetchCompletedUpdate(step, total int, m *models.Movie) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchMovie,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%s)", step, total, m.Title, m.ImdbID),
		Data:    m,
	}
}

func fetchFailedUpdate(step, total int, imdbID string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchMovie,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, imdbID, err),
	}
}

func writeOutputUpdate(path string) ProgressUpdate {
	return ProgressUpdate{Phase: WriteOutput, Step: 1, Total: 1, Message: fmt.Sprintf("Writing %s...", path)}
}

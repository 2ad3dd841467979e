package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pauljones0/property-scanner/internal/filter"
	"github.com/pauljones0/property-scanner/internal/models"
	"github.com/pauljones0/property-scanner/internal/processor"
	"github.com/pauljones0/property-scanner/internal/storage"
	"github.com/pauljones0/property-scanner/internal/validator"
)

// FavoriteStore persists listings saved from the web interface.
type FavoriteStore interface {
	AddFavorite(ctx context.Context, l models.Listing, savedOn time.Time) error
	RemoveFavorite(ctx context.Context, source models.Source, id string) error
	ListFavorites(ctx context.Context) ([]models.Favorite, error)
	FavoriteKeys(ctx context.Context) (map[string]struct{}, error)
}

// Handler handles HTTP requests for the scanner API.
type Handler struct {
	runner     processor.Runner
	favorites  FavoriteStore
	validator  *validator.Validator
	runTimeout time.Duration
	now        func() time.Time
}

// NewHandler creates a new API handler. favorites may be nil when the
// configured backend cannot hold them; the favorites routes then answer 501.
func NewHandler(runner processor.Runner, favorites FavoriteStore, runTimeout time.Duration) *Handler {
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	return &Handler{
		runner:     runner,
		favorites:  favorites,
		validator:  validator.New(),
		runTimeout: runTimeout,
		now:        time.Now,
	}
}

type listingView struct {
	models.Listing
	IsFavorite bool `json:"is_favorite"`
}

type reportView struct {
	*processor.RunReport
	SourceErrors  map[models.Source]string `json:"source_errors,omitempty"`
	NotifyError   string                   `json:"notify_error,omitempty"`
	PersistErrors []string                 `json:"persist_errors,omitempty"`
	Summary       string                   `json:"summary"`
}

func newReportView(r *processor.RunReport) reportView {
	v := reportView{RunReport: r, SourceErrors: r.SourceErrors(), Summary: r.Summary()}
	if r.NotifyErr != nil {
		v.NotifyError = r.NotifyErr.Error()
	}
	for _, err := range r.PersistErrs {
		v.PersistErrors = append(v.PersistErrors, err.Error())
	}
	return v
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListListings returns the latest run's listings, optionally narrowed by
// min_price, max_price, min_beds and max_beds.
func (h *Handler) ListListings(c *gin.Context) {
	criteria, err := criteriaFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var listings []models.Listing
	if report := h.runner.LastReport(); report != nil {
		listings = report.Listings
	}
	listings, _ = filter.Apply(listings, criteria)

	favs := map[string]struct{}{}
	if h.favorites != nil {
		if favs, err = h.favorites.FavoriteKeys(c.Request.Context()); err != nil {
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load favorites"})
			return
		}
	}

	out := make([]listingView, 0, len(listings))
	for _, l := range listings {
		_, fav := favs[l.Key()]
		out = append(out, listingView{Listing: l, IsFavorite: fav})
	}
	c.JSON(http.StatusOK, gin.H{
		"count":           len(out),
		"favorites_count": len(favs),
		"listings":        out,
	})
}

func criteriaFromQuery(c *gin.Context) (models.FilterCriteria, error) {
	var criteria models.FilterCriteria
	bounds := []struct {
		name string
		dst  **int
	}{
		{"min_price", &criteria.MinPrice},
		{"max_price", &criteria.MaxPrice},
		{"min_beds", &criteria.MinBeds},
		{"max_beds", &criteria.MaxBeds},
	}
	for _, b := range bounds {
		raw := c.Query(b.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return criteria, fmt.Errorf("invalid %s %q", b.name, raw)
		}
		*b.dst = models.IntPtr(v)
	}
	if err := filter.Validate(criteria); err != nil {
		return criteria, err
	}
	return criteria, nil
}

// TriggerRun runs one scan and returns its report. A scan already in
// progress answers 409.
func (h *Handler) TriggerRun(c *gin.Context) {
	// The scan outlives a dropped client connection.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.runTimeout)
	defer cancel()

	report, err := h.runner.Run(ctx)
	if errors.Is(err, processor.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		slog.Error("Scan triggered over HTTP failed", "error", err)
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newReportView(report))
}

func (h *Handler) LatestRun(c *gin.Context) {
	report := h.runner.LastReport()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no scan has completed yet"})
		return
	}
	c.JSON(http.StatusOK, newReportView(report))
}

func (h *Handler) ListFavorites(c *gin.Context) {
	if !h.favoritesEnabled(c) {
		return
	}
	favs, err := h.favorites.ListFavorites(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load favorites"})
		return
	}
	if favs == nil {
		favs = []models.Favorite{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(favs), "favorites": favs})
}

func (h *Handler) AddFavorite(c *gin.Context) {
	if !h.favoritesEnabled(c) {
		return
	}
	var l models.Listing
	if err := c.ShouldBindJSON(&l); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing: " + err.Error()})
		return
	}
	if err := h.validator.ValidateListing(l); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.favorites.AddFavorite(c.Request.Context(), l, h.now()); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save favorite"})
		return
	}
	slog.Info("Listing added to favorites", "source", l.Source, "id", l.ID)
	c.JSON(http.StatusCreated, gin.H{"key": l.Key()})
}

func (h *Handler) RemoveFavorite(c *gin.Context) {
	if !h.favoritesEnabled(c) {
		return
	}
	source, ok := models.ParseSource(c.Param("source"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown source %q", c.Param("source"))})
		return
	}
	err := h.favorites.RemoveFavorite(c.Request.Context(), source, c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "favorite not found"})
		return
	}
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove favorite"})
		return
	}
	slog.Info("Listing removed from favorites", "source", source, "id", c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *Handler) favoritesEnabled(c *gin.Context) bool {
	if h.favorites == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "favorites require the sqlite storage backend"})
		return false
	}
	return true
}

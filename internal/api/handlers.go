package api

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"casaviva/server/config"
	"casaviva/server/internal/geometry"
	"casaviva/server/internal/graph"
	"casaviva/server/internal/livability"
	"casaviva/server/internal/marketplace"
	"casaviva/server/internal/models"
	"casaviva/server/internal/reservations"
)

type Handler struct {
	graph       *graph.Store
	scorer      *livability.Scorer
	batchScorer *livability.BatchScorer
	protocol    *reservations.Protocol
	market      *marketplace.Client
	kv          Pinger
	config      *config.Config
	logger      *logrus.Logger
}

// Pinger reports reservation-store connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type SpatialRequest struct {
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Neighbourhood string   `json:"neighbourhood" binding:"required"`
	Price         int      `json:"price"`
	PropertyType  string   `json:"property_type"`
	Thumbnail     string   `json:"thumbnail"`
}

type RescheduleRequest struct {
	Day     string `json:"day" binding:"required"`
	Time    string `json:"time" binding:"required"`
	Address string `json:"address" binding:"required"`
}

func NewHandler(graphStore *graph.Store, scorer *livability.Scorer, batchScorer *livability.BatchScorer,
	protocol *reservations.Protocol, market *marketplace.Client, kv Pinger, cfg *config.Config, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		graph:       graphStore,
		scorer:      scorer,
		batchScorer: batchScorer,
		protocol:    protocol,
		market:      market,
		kv:          kv,
		config:      cfg,
		logger:      logger,
	}
}

// UpsertPropertySpatial merges a property into the spatial graph and rebuilds
// its proximity edges, then recomputes its livability score when the edges
// changed.
func (h *Handler) UpsertPropertySpatial(c *gin.Context) {
	propertyID := c.Param("id")

	var req SpatialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse spatial upsert request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	hasCoordinates := req.Latitude != nil && req.Longitude != nil
	if hasCoordinates {
		if err := geometry.ValidateCoordinates(*req.Latitude, *req.Longitude); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	prop := models.Property{
		ID:            propertyID,
		Price:         req.Price,
		PropertyType:  req.PropertyType,
		Thumbnail:     req.Thumbnail,
		Neighbourhood: req.Neighbourhood,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
	}
	if err := h.graph.UpsertProperty(c.Request.Context(), prop, h.config.Graph.ProximityRadius); err != nil {
		h.logger.WithError(err).Error("Failed to upsert property in spatial graph")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update spatial graph"})
		return
	}

	if !hasCoordinates {
		c.JSON(http.StatusOK, gin.H{"status": "updated"})
		return
	}

	score, err := h.scorer.Recompute(c.Request.Context(), propertyID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to recompute livability score")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to recompute livability score"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated", "score": score})
}

// RecomputeLivability re-runs the livability formula for one property.
func (h *Handler) RecomputeLivability(c *gin.Context) {
	propertyID := c.Param("id")

	score, err := h.scorer.Recompute(c.Request.Context(), propertyID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to recompute livability score")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to recompute livability score"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"property_id": propertyID, "score": score})
}

// RecomputeAllLivability queues every property for bulk rescoring.
func (h *Handler) RecomputeAllLivability(c *gin.Context) {
	if err := h.batchScorer.Enqueue(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("Failed to queue bulk livability run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue bulk livability run"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "Bulk livability scoring queued"})
}

// GetNearPOIs lists the points of interest within the proximity radius of a
// property.
func (h *Handler) GetNearPOIs(c *gin.Context) {
	propertyID := c.Param("id")

	pois, err := h.graph.NearPOIs(c.Request.Context(), propertyID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get near POIs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get near POIs"})
		return
	}

	c.JSON(http.StatusOK, pois)
}

// BookNow books an open-house slot for the calling buyer.
func (h *Handler) BookNow(c *gin.Context) {
	buyerID := c.GetString(subjectKey)
	propertyID := c.Param("id")

	listing, err := h.market.Listing(c.Request.Context(), propertyID)
	if err != nil {
		h.respondMarketError(c, err, "Failed to load property listing")
		return
	}

	err = h.protocol.BookNow(c.Request.Context(), reservations.BookingRequest{
		BuyerID:         buyerID,
		PropertyID:      propertyID,
		Day:             listing.Day,
		Time:            listing.Time,
		Thumbnail:       listing.Thumbnail,
		Address:         listing.Address,
		MaxReservations: listing.Area / 10,
	})
	if err != nil {
		h.respondReservationError(c, err, "Failed to book reservation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "booked"})
}

// CancelReservation cancels the calling buyer's reservation for a property.
func (h *Handler) CancelReservation(c *gin.Context) {
	buyerID := c.GetString(subjectKey)
	propertyID := c.Param("property_id")

	if err := h.protocol.Cancel(c.Request.Context(), buyerID, propertyID); err != nil {
		h.respondReservationError(c, err, "Failed to cancel reservation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// GetBuyerReservations returns the calling buyer's reservations, sweeping
// expired entries as a side effect.
func (h *Handler) GetBuyerReservations(c *gin.Context) {
	buyerID := c.GetString(subjectKey)

	entries, err := h.protocol.BuyerReservations(c.Request.Context(), buyerID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get buyer reservations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get reservations"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// GetSellerReservations returns the attendee list of a property's open house.
func (h *Handler) GetSellerReservations(c *gin.Context) {
	propertyID := c.Param("id")

	record, err := h.protocol.SellerReservations(c.Request.Context(), propertyID)
	if err != nil {
		h.respondReservationError(c, err, "Failed to get seller reservations")
		return
	}

	c.JSON(http.StatusOK, record)
}

// RescheduleProperty propagates a changed open-house schedule or address to
// every paired buyer record.
func (h *Handler) RescheduleProperty(c *gin.Context) {
	propertyID := c.Param("id")

	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse reschedule request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	if err := h.protocol.OnPropertyRescheduled(c.Request.Context(), propertyID, req.Day, req.Time, req.Address); err != nil {
		h.respondReservationError(c, err, "Failed to propagate reschedule")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "rescheduled"})
}

// RemoveProperty drops a sold or withdrawn property: every reservation on
// both sides plus the spatial graph node.
func (h *Handler) RemoveProperty(c *gin.Context) {
	propertyID := c.Param("id")

	if err := h.protocol.OnPropertyRemoved(c.Request.Context(), propertyID); err != nil {
		h.respondReservationError(c, err, "Failed to remove reservations")
		return
	}

	if err := h.graph.RemoveProperty(c.Request.Context(), propertyID); err != nil {
		h.logger.WithError(err).Error("Failed to remove property from spatial graph")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove property from spatial graph"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// Health reports store connectivity.
func (h *Handler) Health(c *gin.Context) {
	status := gin.H{"status": "ok"}
	code := http.StatusOK

	if err := h.graph.Ping(c.Request.Context()); err != nil {
		status["graph"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := h.market.Ping(c.Request.Context()); err != nil {
		status["marketplace"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := h.kv.Ping(c.Request.Context()); err != nil {
		status["reservations"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if code != http.StatusOK {
		status["status"] = "degraded"
	}

	c.JSON(code, status)
}

func (h *Handler) respondMarketError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, marketplace.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed identifier"})
	case errors.Is(err, marketplace.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		h.logger.WithError(err).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

func (h *Handler) respondReservationError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, reservations.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "Reservation already exists"})
	case errors.Is(err, reservations.ErrCapacityExceeded):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No open-house slots left"})
	case errors.Is(err, reservations.ErrIncompleteProfile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Complete your profile before booking"})
	case errors.Is(err, reservations.ErrInvalidSchedule):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid open-house schedule"})
	case errors.Is(err, reservations.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
	case errors.Is(err, reservations.ErrPartialWrite):
		// The first leg committed; the repair scheduler will converge the
		// pairing. Callers must not assume the operation fully failed.
		h.logger.WithError(err).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  message,
			"detail": "Partial state was written and will self-heal",
		})
	case errors.Is(err, marketplace.ErrInvalidID), errors.Is(err, marketplace.ErrNotFound):
		h.respondMarketError(c, err, message)
	default:
		h.logger.WithError(err).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

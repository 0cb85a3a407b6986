package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Handler implements the HTTPHandler interface and manages record API requests
type Handler struct {
	logger       Logger
	defaultLimit int
	service      *Service
}

// NewHandler creates a new record handler
func NewHandler(store Store, logger Logger, sorter Sorter, defaultLimit int) *Handler {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	return &Handler{
		logger:       logger,
		defaultLimit: defaultLimit,
		service:      NewService(store, sorter, defaultLimit),
	}
}

// ListStreams handles the GET /streams endpoint
func (h *Handler) ListStreams(w http.ResponseWriter, r *http.Request) {
	parser := NewDefaultQueryParser(r.URL.Query())

	limit := parser.ParseInt("limit", h.defaultLimit)
	page := parser.ParseInt("page", 1)
	sortOrder := parser.ParseSortOrder("sort", SortAscending)

	response, err := h.service.ListStreams(r.Context(), page, limit, sortOrder)
	if err != nil {
		h.logger.Error("failed to list streams", "error", err)
		h.jsonError(w, http.StatusInternalServerError, "failed to list streams")
		return
	}

	h.jsonOK(w, response)
	h.logger.Info("listed streams", "total", response.Total, "page", response.Page, "limit", response.Limit)
}

// QueryRecords handles the GET /records endpoint. The stream query parameter is optional.
func (h *Handler) QueryRecords(w http.ResponseWriter, r *http.Request) {
	streamID := r.URL.Query().Get("stream")
	h.queryRecords(w, r, streamID)
}

// QueryStreamRecords handles the GET /streams/{id}/records endpoint
func (h *Handler) QueryStreamRecords(w http.ResponseWriter, r *http.Request) {
	streamID := extractStreamIDFromPath(r.URL.Path)
	if streamID == "" {
		h.logger.Warn("missing stream ID in request")
		h.jsonError(w, http.StatusBadRequest, ErrInvalidStreamID.Error())
		return
	}
	h.queryRecords(w, r, streamID)
}

func (h *Handler) queryRecords(w http.ResponseWriter, r *http.Request, streamID string) {
	q, err := h.parseRecordQuery(r)
	if err != nil {
		h.logger.Warn("invalid query parameters", "error", err)
		h.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.StreamID = streamID

	response, err := h.service.QueryRecords(r.Context(), q)
	switch {
	case errors.Is(err, ErrInvalidRange), errors.Is(err, ErrInvalidLimit), errors.Is(err, ErrInvalidPage):
		h.jsonError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to query records", "stream", streamID, "error", err)
		h.jsonError(w, http.StatusInternalServerError, "failed to query records")
		return
	}

	h.jsonOK(w, response)
	h.logger.Info("queried records", "stream", streamID, "total", response.Total, "page", response.Page)
}

func (h *Handler) parseRecordQuery(r *http.Request) (RecordQuery, error) {
	parser := NewDefaultQueryParser(r.URL.Query())

	startTime, err := parser.ParseTimeParam("start_time")
	if err != nil {
		return RecordQuery{}, errors.New("invalid start_time format")
	}
	endTime, err := parser.ParseTimeParam("end_time")
	if err != nil {
		return RecordQuery{}, errors.New("invalid end_time format")
	}
	msgType, err := parser.ParseType("type")
	if err != nil {
		return RecordQuery{}, err
	}
	direction, err := parser.ParseDirection("direction")
	if err != nil {
		return RecordQuery{}, err
	}

	return RecordQuery{
		Type:       msgType,
		Direction:  direction,
		FailedOnly: parser.ParseBool("errors"),
		StartTime:  startTime,
		EndTime:    endTime,
		Pagination: PaginationParams{
			Limit: parser.ParseInt("limit", h.defaultLimit),
			Page:  parser.ParseInt("page", 1),
		},
		SortOrder: parser.ParseSortOrder("sort", SortAscending),
	}, nil
}

// jsonOK writes a successful JSON response
func (h *Handler) jsonOK(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}

// jsonError writes an error JSON response
func (h *Handler) jsonError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// extractStreamIDFromPath extracts the stream ID from the URL path
// Example: /api/v1/streams/s1/records -> s1
func extractStreamIDFromPath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "streams" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

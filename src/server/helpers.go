package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"cheese-stick/src/analysis"
	"cheese-stick/src/dashboard"
	"cheese-stick/src/helpers"
	"cheese-stick/src/imaging"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, analysis.ErrNoCompetition),
		errors.Is(err, analysis.ErrPlayerIndex),
		errors.Is(err, imaging.ErrImageDecode),
		helpers.IsValidation(err):
		return http.StatusBadRequest
	case helpers.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrCaptureInProgress):
		return http.StatusConflict
	case errors.Is(err, errUploadTooLarge),
		errors.Is(err, imaging.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is the user facing text for err.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, analysis.ErrNoCompetition):
		return "No competition configured"
	case errors.Is(err, analysis.ErrPlayerIndex):
		return "Invalid player index"
	case errors.Is(err, analysis.ErrNoTradingData):
		return "No trading data available"
	}
	var ds *helpers.DataSourceError
	if errors.As(err, &ds) {
		return "Failed to fetch stock data"
	}
	return err.Error()
}

func respondError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{"error": errorMessage(err)})
}

// -----------------------------------------------------------------------------

// parseBool accepts 1/0, true/false, yes/no and on/off; anything else is def.
func parseBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// parseIndex reads a path parameter as a non-negative integer.
func parseIndex(c *gin.Context, name string) (int, error) {
	idx, err := strconv.Atoi(c.Param(name))
	if err != nil || idx < 0 {
		return 0, analysis.ErrPlayerIndex
	}
	return idx, nil
}

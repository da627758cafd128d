package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"sentimentreality/internal/models"
	"sentimentreality/internal/repository"
)

// Repos bundles the repositories the API reads and writes.
type Repos struct {
	Task      *repository.TaskRepository
	Stock     *repository.StockRepository
	Aggregate *repository.AggregateRepository
}

// Response helpers for the standard envelope.
func successResponse(c echo.Context, msg string, obj interface{}) error {
	return c.JSON(http.StatusOK, models.APIResponse{
		Status: true,
		Msg:    msg,
		Obj:    obj,
	})
}

func errorResponse(c echo.Context, code int, msg string) error {
	return c.JSON(code, models.APIResponse{
		Status: false,
		Msg:    msg,
		Obj:    nil,
	})
}

// queryInt reads a positive integer query parameter, falling back to def and capping at max.
func queryInt(c echo.Context, name string, def, max int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v <= 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports that the service is up.  Used by load balancers and
// monitoring; it does not touch the database.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

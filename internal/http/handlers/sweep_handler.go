package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/helloforever-backend/internal/services"
)

// RunSweep godoc
// @ID          runSweep
// @Summary     Deliver due messages
// @Description Called by the scheduler. Each due message is emailed and marked DELIVERED; per-message failures are reported without aborting the run.
// @Tags        Internal
// @Produce     json
// @Param       Authorization  header  string  false "Bearer <CRON_SECRET> when configured"
// @Success     200  {object} services.SweepResult
// @Failure     401  {object} handlers.ErrorResponse "Bad or missing bearer token"
// @Failure     409  {object} handlers.ErrorResponse "Another sweep is running"
// @Router      /internal/deliveries/sweep [post]
func (h *Handlers) RunSweep(c *gin.Context) {
	res, err := h.sweeps.Run(c.Request.Context(), h.now().UTC(), services.TriggerHTTP)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

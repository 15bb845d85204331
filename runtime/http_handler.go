package runtime

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BDNK1/durable/runtime/history"
)

// DecidePath is the route of the decision endpoint.
const DecidePath = "/orchestrations/:name/decide"

// NewHttpHandler registers the decision endpoints on g:
//
//	GET  /orchestrations                 registered orchestration names
//	POST /orchestrations/:name/decide    history payload in, Decision out
func NewHttpHandler(l *slog.Logger, runner *Runner, app *App, g *gin.Engine) {
	g.GET("/orchestrations", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"orchestrations": app.Names()})
	})
	g.POST(DecidePath, handleDecide(l, runner))
}

func handleDecide(l *slog.Logger, runner *Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Error reading request body: " + err.Error()})
			return
		}

		payload, err := history.Decode(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Wrong history format: " + err.Error()})
			return
		}

		instanceID := payload.InstanceID
		if q := c.Query("instanceId"); q != "" {
			instanceID = q
		}

		decision, err := runner.Run(c.Request.Context(), Request{
			Orchestration: name,
			InstanceID:    instanceID,
			History:       payload.Log,
			Input:         payload.Input,
		})
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrUnknownOrchestration) {
				status = http.StatusNotFound
			}
			l.Error("Orchestration decision failed",
				"orchestration", name,
				"instance_id", instanceID,
				"path", c.Request.URL.Path,
				"error", err.Error())
			c.JSON(status, gin.H{"message": "Error deciding orchestration: " + err.Error()})
			return
		}

		c.JSON(http.StatusOK, decision)
	}
}

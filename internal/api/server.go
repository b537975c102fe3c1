package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/grussorusso/faasrunner/internal/config"
	"github.com/grussorusso/faasrunner/internal/executor"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

// NewServer exposes the progress of the running experiment.
func NewServer(progress *executor.Progress) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/status", func(c echo.Context) error {
		return c.JSON(http.StatusOK, progress.Status())
	})
	e.GET("/progress", func(c echo.Context) error {
		return c.String(http.StatusOK, fmt.Sprintf("%d", progress.Percent()))
	})
	return e
}

// StartAPIServer serves e on the configured port. It blocks.
func StartAPIServer(e *echo.Echo) {
	portNumber := config.GetInt(config.API_PORT, 1323)
	logrus.Infof("Status API listening on port %d", portNumber)
	if err := e.Start(fmt.Sprintf(":%d", portNumber)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Errorf("Status API stopped: %v", err)
	}
}

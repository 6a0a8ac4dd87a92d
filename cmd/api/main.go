package main

import (
	"os"

	"github.com/campusops/erp/internal/pkg/logger"
	"github.com/campusops/erp/internal/server"
)

// @title College ERP API
// @version 1.0
// @description API for the college ERP: accounts, hostels, classes, courses, attendance, fees and exams

// @contact.name API Support
// @contact.email support@college-erp.local

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description ID token issued at login, as "Bearer <token>"

func main() {
	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		logger.Flush()
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}

package di

import (
	"dppmini/internal/providers"
	"dppmini/internal/services"
	"dppmini/internal/storage"
	"dppmini/internal/structures"
)

// Toolkit is what the one-shot CLI commands need: the record service and
// the exporter, without the HTTP stack.
type Toolkit struct {
	Conf     *structures.Config
	Logger   providers.Logger
	Records  services.RecordServiceInterface
	Exporter *storage.Exporter
}

//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"dppmini/internal"
	"dppmini/internal/controllers"
	"dppmini/internal/providers"
	"dppmini/internal/services"
	"dppmini/internal/storage"
	"dppmini/internal/storage/interfaces"
	"dppmini/internal/structures"
)

var storageSet = wire.NewSet(
	storage.NewZstdCompressor,
	storage.NewExporter,
	storage.NewFileManager,
	wire.Bind(new(interfaces.RecordFileInterface), new(*storage.FileManager)),
	storage.NewSettingsStore,
	wire.Bind(new(services.SettingsFileInterface), new(*storage.SettingsStore)),
)

var serviceSet = wire.NewSet(
	providers.NewConfigProvider,
	providers.NewLogProvider,
	providers.NewMetricsProvider,
	storageSet,
	services.NewRecordService,
	wire.Bind(new(services.RecordServiceInterface), new(*services.RecordService)),
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		serviceSet,
		providers.NewInstrumentedCacheProvider,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}

func InitToolkit(cfg *structures.CliFlags) (*Toolkit, error) {

	wire.Build(
		serviceSet,
		wire.Struct(new(Toolkit), "*"),
	)

	return nil, nil
}

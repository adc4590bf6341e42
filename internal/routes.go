package internal

import (
	"net/http"

	"dppmini/internal/controllers"
	"dppmini/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/api/items", http.HandlerFunc(apiController.List))
	routers.Get("/api/items/recent", http.HandlerFunc(apiController.Recent))
	routers.Post("/api/items", http.HandlerFunc(apiController.Add))
	routers.Put("/api/items", http.HandlerFunc(apiController.Edit))
	routers.Delete("/api/items", http.HandlerFunc(apiController.Delete))
	routers.Post("/api/import", http.HandlerFunc(apiController.Import))
	routers.Get("/api/export", http.HandlerFunc(apiController.Export))
	routers.Get("/api/settings", http.HandlerFunc(apiController.GetSettings))
	routers.Put("/api/settings", http.HandlerFunc(apiController.PutSettings))
	return routers
}

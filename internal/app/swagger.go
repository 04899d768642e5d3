package app

import (
	"github.com/labstack/echo/v4"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/stolasapp/animes/internal/app/docs"
)

//go:generate swag init --generalInfo swagger.go --output docs --outputTypes go --parseDependency --parseInternal

//	@title			Animes API
//	@version		1.0
//	@description	CRUD over an anime catalog, protected by HTTP Basic authentication.
//	@BasePath		/

//	@securityDefinitions.basic	BasicAuth

//	@tag.name			anime
//	@tag.description	Anime catalog

//	@tag.name			user
//	@tag.description	Credential records

const docsPrefix = "/swagger"

// registerDocs serves the Swagger UI under /swagger and the generated
// document at /swagger/doc.json.
func registerDocs(e *echo.Echo) {
	e.GET(docsPrefix+"/*", echo.WrapHandler(httpSwagger.Handler(
		httpSwagger.URL(docsPrefix+"/doc.json"),
		httpSwagger.InstanceName(docs.SwaggerInfo.InstanceName()),
	)))
}

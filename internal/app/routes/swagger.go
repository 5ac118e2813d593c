package routes

import (
	"net/url"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/communitylink/communitylink/docs"
)

// SetupSwagger serves the API docs under /swagger. The documented host and scheme
// follow baseURL so "try it out" calls reach this deployment.
func SetupSwagger(router *gin.Engine, baseURL string) {
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		docs.SwaggerInfo.Host = u.Host
		if u.Scheme != "" {
			docs.SwaggerInfo.Schemes = []string{u.Scheme}
		}
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL("/swagger/doc.json"),
		ginSwagger.DefaultModelsExpandDepth(1),
		ginSwagger.PersistAuthorization(true),
	))
}

package routes

import (
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const swaggerDocURL = "/swagger-doc/swagger.json"

// SetupSwagger serves the Swagger UI for the OpenAPI document that `swag init` writes
// to docPath. Nothing is mounted until the document has been generated.
func SetupSwagger(router *gin.Engine, docPath string) bool {
	if _, err := os.Stat(docPath); err != nil {
		return false
	}
	router.StaticFile(swaggerDocURL, docPath)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL(swaggerDocURL),
		ginSwagger.DefaultModelsExpandDepth(1),
	))
	return true
}

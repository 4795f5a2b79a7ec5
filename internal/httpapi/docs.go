package httpapi

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

// swaggerSpec is the hand-authored OpenAPI 2.0 document describing the
// control plane's routes (see swagger.json, and the @Summary/@Router
// annotations on the EvaluationsHandler methods in evaluations.go that
// mirror it). Embedded rather than generated: swag's codegen step is
// part of the build toolchain, not something this package depends on
// at runtime.
//
//go:embed swagger.json
var swaggerSpec []byte

// serveSwaggerDoc handles GET /swagger.json, the URL gin-swagger's UI
// is pointed at in SetupRouter.
func serveSwaggerDoc(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", swaggerSpec)
}

// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the query API with the router group.
//
// Description:
//
//	The router group should already have any required middleware
//	applied (tracing, CORS).
//
// Endpoints:
//
//	POST /v1/query    - Answer a question with citations
//	GET  /v1/courses  - Course statistics
//	POST /v1/sessions - Create a conversation session
//	GET  /v1/health   - Liveness check
//	GET  /v1/ready    - Readiness check
//
// Example:
//
//	handlers := api.NewHandlers(system)
//
//	v1 := router.Group("/v1")
//	api.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	rg.POST("/query", handlers.HandleQuery)
	rg.GET("/courses", handlers.HandleCourses)
	rg.POST("/sessions", handlers.HandleNewSession)

	rg.GET("/health", handlers.HandleHealth)
	rg.GET("/ready", handlers.HandleReady)
}

package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jonathanw33/mrsa-kds/internal/config"
	"github.com/jonathanw33/mrsa-kds/internal/fasta"
	"github.com/jonathanw33/mrsa-kds/internal/metrics"
	"github.com/sirupsen/logrus"
)

type RouterDeps struct {
	Server   config.ServerConfig
	Auth     TokenVerifier
	Analysis *AnalysisHandler
	History  *HistoryHandler
	Metrics  *metrics.Metrics
	Log      logrus.FieldLogger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = fasta.MaxUploadBytes
	router.Use(gin.Recovery(), RequestIDMiddleware())
	if deps.Log != nil {
		router.Use(RequestLogger(deps.Log))
	}
	router.Use(CORSMiddleware(deps.Server.AllowedOrigins, deps.Server.AllowCreds))

	router.GET("/ping", Ping)
	router.GET("/", Root)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	api := router.Group("/api/v1", AuthMiddleware(deps.Auth))
	api.POST("/analyses", deps.Analysis.Analyze)
	api.POST("/blast", deps.Analysis.RunBlast)
	api.GET("/reference-genes", deps.Analysis.ReferenceGenes)
	api.GET("/history", deps.History.List)
	api.GET("/history/:key", deps.History.Get)
	api.DELETE("/history/:key", deps.History.Delete)
	api.POST("/history/:key/explain", deps.History.Explain)

	return router
}

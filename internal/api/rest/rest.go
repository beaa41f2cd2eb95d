package rest

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all REST API routes. The engagement middlewares
// run in front of the view and favourite endpoints only.
func SetupRoutes(router *gin.Engine, handler Handler, engagement ...gin.HandlerFunc) {
	// Health check endpoint (no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Stamp reads
		v1.GET("/stamps", handler.ListStamps)
		v1.GET("/stamps/trending", handler.TrendingStamps)
		v1.GET("/stamps/:id", handler.GetStamp)
		v1.GET("/stamps/:id/ownerships", handler.GetOwnershipHistory)
		v1.GET("/stamps/:id/prices", handler.GetPriceHistory)

		// Stamp writes
		v1.POST("/stamps", handler.CreateStamp)
		v1.DELETE("/stamps/:id", handler.DeleteStamp)
		v1.POST("/stamps/:id/transfers", handler.TransferStamp)
		v1.POST("/stamps/:id/prices", handler.SetStampPrice)
		v1.PATCH("/stamps/:id/token", handler.UpdateStampToken)
		v1.PUT("/stamps/:id/verification", handler.SetStampVerification)
		v1.PUT("/stamps/:id/listing", handler.SetStampListing)
		v1.DELETE("/stamps/:id/counters", handler.ResetStampCounters)

		// Collections
		v1.GET("/collections", handler.ListCollections)
		v1.GET("/collections/trending", handler.TrendingCollections)
		v1.GET("/collections/:id", handler.GetCollection)
		v1.POST("/collections", handler.CreateCollection)
		v1.PUT("/collections/:id/items/:stamp_id", handler.AddCollectionItem)
		v1.DELETE("/collections/:id/items/:stamp_id", handler.RemoveCollectionItem)

		// Users
		v1.POST("/users", handler.CreateUser)
	}

	// Engagement counters
	counters := router.Group("/api/v1", engagement...)
	{
		counters.POST("/stamps/:id/views", handler.RecordStampView)
		counters.POST("/stamps/:id/favourites", handler.RecordStampFavourite)
		counters.POST("/collections/:id/views", handler.RecordCollectionView)
		counters.POST("/collections/:id/favourites", handler.RecordCollectionFavourite)
	}
}

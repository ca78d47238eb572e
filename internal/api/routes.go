package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler, tokenSecret string) {
	api := router.Group("/api")
	{
		api.GET("/health", handler.Health)

		// Spatial graph hooks, driven by listing-service events.
		api.POST("/properties/:id/spatial", handler.UpsertPropertySpatial)
		api.POST("/properties/:id/livability", handler.RecomputeLivability)
		api.POST("/livability/recompute-all", handler.RecomputeAllLivability)
		api.GET("/properties/:id/near", handler.GetNearPOIs)

		authed := api.Group("", AuthRequired(tokenSecret))
		{
			buyers := authed.Group("", RequireRole(RoleBuyer))
			{
				buyers.POST("/properties/:id/book", handler.BookNow)
				buyers.GET("/reservations", handler.GetBuyerReservations)
				buyers.DELETE("/reservations/:property_id", handler.CancelReservation)
			}

			sellers := authed.Group("", RequireRole(RoleSeller))
			{
				sellers.GET("/properties/:id/reservations", handler.GetSellerReservations)
				sellers.POST("/properties/:id/reschedule", handler.RescheduleProperty)
				sellers.DELETE("/properties/:id", handler.RemoveProperty)
			}
		}
	}
}

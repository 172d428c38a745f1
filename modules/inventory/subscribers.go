package inventory

import (
	"github.com/sirupsen/logrus"

	"github.com/stockledger/stockledger/modules/inventory/services"
	"github.com/stockledger/stockledger/pkg/application"
)

// subscribe logs every inventory notification at info level.
func subscribe(app application.Application) {
	log := app.Logger().WithField("component", "inventory-events")
	bus := app.EventPublisher()

	bus.Subscribe(func(e *services.ChangeApplied) {
		log.WithFields(logrus.Fields{
			"actor_id":   e.Actor.ID,
			"product_id": e.Product.ID,
			"fields":     len(e.Changes),
			"created":    e.Created,
		}).Info("change applied")
	})
	bus.Subscribe(func(e *services.ChangeSubmitted) {
		log.WithFields(logrus.Fields{
			"actor_id":    e.Actor.ID,
			"product_id":  e.ProductID,
			"request_ids": e.RequestIDs,
		}).Info("change submitted for approval")
	})
	bus.Subscribe(func(e *services.ChangeResolved) {
		log.WithFields(logrus.Fields{
			"actor_id":   e.Admin.ID,
			"request_id": e.Request.ID,
			"product_id": e.Request.EntityID,
			"status":     string(e.Request.Status),
		}).Info("change request resolved")
	})
	bus.Subscribe(func(e *services.ProductsDeactivated) {
		log.WithFields(logrus.Fields{
			"actor_id":    e.Actor.ID,
			"product_ids": e.IDs,
		}).Info("products deactivated")
	})
	bus.Subscribe(func(e *services.FormSchemaSaved) {
		log.WithFields(logrus.Fields{
			"actor_id":       e.Actor.ID,
			"table":          e.TableName,
			"changed_fields": e.ChangedFields,
		}).Info("form schema saved")
	})
}

package services

import (
	"github.com/stockledger/stockledger/modules/inventory/domain/changerequest"
	"github.com/stockledger/stockledger/modules/inventory/domain/product"
	"github.com/stockledger/stockledger/pkg/actor"
)

// ChangeApplied is published after an admin change commits.
type ChangeApplied struct {
	Actor   actor.Actor
	Product *product.Product
	Changes product.Changes
	Created bool
}

// ChangeSubmitted is published after an editor proposal commits.
type ChangeSubmitted struct {
	Actor      actor.Actor
	ProductID  int64
	RequestIDs []int64
}

// ChangeResolved is published after an approval or rejection commits.
type ChangeResolved struct {
	Admin   actor.Actor
	Request *changerequest.PendingRequest
}

type ProductsDeactivated struct {
	Actor actor.Actor
	IDs   []int64
}

type FormSchemaSaved struct {
	Actor         actor.Actor
	TableName     string
	ChangedFields []string
}

package composables

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/stockledger/stockledger/pkg/actor"
	"github.com/stockledger/stockledger/pkg/constants"
)

var (
	ErrNoActor = errors.New("actor not found in context")
)

// UseLogger returns the request logger, or the standard logger outside a request.
func UseLogger(ctx context.Context) *logrus.Entry {
	switch v := ctx.Value(constants.LoggerKey).(type) {
	case *logrus.Entry:
		return v
	case *logrus.Logger:
		return logrus.NewEntry(v)
	default:
		return logrus.NewEntry(logrus.StandardLogger())
	}
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

func WithActor(ctx context.Context, a actor.Actor) context.Context {
	return context.WithValue(ctx, constants.ActorKey, a)
}

// UseActor returns the authenticated caller placed in ctx by the auth middleware.
func UseActor(ctx context.Context) (actor.Actor, error) {
	a, ok := ctx.Value(constants.ActorKey).(actor.Actor)
	if !ok {
		return actor.Actor{}, ErrNoActor
	}
	return a, nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/credential"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/notify"
	"github.com/nhle/taskboard/internal/store"
)

// backend bundles the services built on one store.
type backend struct {
	store  store.Store
	notify *notify.Service
	board  *board.Service
}

func (b *backend) Close() {
	if err := b.store.Close(); err != nil {
		log.Printf("[taskboard] closing store: %v", err)
	}
}

// openBackend connects to the configured store and wires the services.
func (e *env) openBackend(ctx context.Context) (*backend, error) {
	s, err := e.openStore(ctx)
	if err != nil {
		return nil, err
	}
	n := notify.NewService(s, notify.WithBatchSize(e.cfg.Notifications.BatchSize))
	return &backend{
		store:  s,
		notify: n,
		board:  board.NewService(s, n),
	}, nil
}

func (e *env) openStore(ctx context.Context) (store.Store, error) {
	bc := e.cfg.Backend
	switch bc.Driver {
	case model.DriverMongo:
		uri, err := e.creds.Resolve(bc.MongoURI, credential.KeyMongoURI)
		if err != nil {
			return nil, fmt.Errorf("resolving mongo uri: %w", err)
		}
		if !bc.GroupQueries {
			log.Printf("[taskboard] backend.group_queries is ignored by the mongo driver")
		}
		ms, err := store.NewMongoStore(ctx, uri, bc.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return ms, nil

	default:
		if err := os.MkdirAll(filepath.Dir(bc.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		var opts []store.Option
		if !bc.GroupQueries {
			opts = append(opts, store.WithoutGroupQueries())
		}
		ss, err := store.NewSQLiteStore(bc.SQLitePath, opts...)
		if err != nil {
			return nil, err
		}
		return ss, nil
	}
}

// jwtSecret returns the configured signing secret, falling back to the
// keyring.
func (e *env) jwtSecret() (string, error) {
	secret, err := e.creds.Resolve(e.cfg.Server.JWTSecret, credential.KeyJWTSecret)
	if err != nil {
		return "", fmt.Errorf("resolving jwt secret: %w", err)
	}
	return secret, nil
}

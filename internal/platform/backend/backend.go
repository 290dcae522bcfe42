package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/config"
	platformfs "github.com/weiwei-tsao/myroom/apps/api/internal/platform/firestore"
	platformmongo "github.com/weiwei-tsao/myroom/apps/api/internal/platform/mongo"
	"github.com/weiwei-tsao/myroom/apps/api/internal/repository"
	"github.com/weiwei-tsao/myroom/apps/api/internal/repository/memory"
	mongostore "github.com/weiwei-tsao/myroom/apps/api/internal/repository/mongo"
)

// Stores bundles the persistence dependencies of the listing service.
type Stores struct {
	Listings listing.Store
	Reviews  listing.ReviewStore
	Runs     listing.RunStore
	Stats    listing.StatsStore
	// Ping checks connectivity; nil for the memory backend.
	Ping  func(ctx context.Context) error
	close func() error
}

// Close releases the store client.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open connects the store backend selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Stores, error) {
	switch cfg.StoreBackend {
	case config.BackendFirestore:
		client, source, err := platformfs.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("firestore client initialised",
			zap.String("projectId", cfg.FirebaseProjectID),
			zap.String("credentials", source),
			zap.String("appId", cfg.AppID))
		return &Stores{
			Listings: repository.NewListingRepository(client, cfg.AppID),
			Reviews:  repository.NewReviewRepository(client, cfg.AppID),
			Runs:     repository.NewRunRepository(client, cfg.AppID),
			Stats:    repository.NewStatsRepository(client, cfg.AppID),
			Ping:     func(ctx context.Context) error { return platformfs.Ping(ctx, client) },
			close:    client.Close,
		}, nil

	case config.BackendMongo:
		client, err := platformmongo.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDB)
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = platformmongo.Close(client)
			return nil, err
		}
		logger.Info("mongodb client initialised", zap.String("database", cfg.MongoDB))
		return &Stores{
			Listings: mongostore.NewStore(db),
			Reviews:  mongostore.NewReviews(db),
			Runs:     mongostore.NewRuns(db),
			Stats:    mongostore.NewStats(db),
			Ping:     func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:    func() error { return platformmongo.Close(client) },
		}, nil

	case config.BackendMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return Memory(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// Memory returns fresh in-memory stores.
func Memory() *Stores {
	return &Stores{
		Listings: memory.NewStore(),
		Reviews:  memory.NewReviews(),
		Runs:     memory.NewRuns(),
		Stats:    memory.NewStats(),
	}
}

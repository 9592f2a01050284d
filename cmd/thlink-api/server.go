package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MarcoPoloResearchLab/thlink/backend/internal/config"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/database"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/documents"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/notify"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/server"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store/blobfs"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store/dynamostore"
	"github.com/MarcoPoloResearchLab/thlink/backend/internal/store/sqlstore"
)

const shutdownTimeout = 10 * time.Second

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogEncoding)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	records, closeRecords, err := openRecordStore(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer closeRecords()

	signer, err := blobfs.NewURLSigner(blobfs.URLSignerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		BaseURL:       appConfig.PublicBaseURL,
		TTL:           appConfig.BlobURLTTL,
	})
	if err != nil {
		return err
	}
	blobs, err := blobfs.New(blobfs.Config{
		Root:   appConfig.BlobDirectory,
		Signer: signer,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher()
	publishers := notify.Fanout{dispatcher}
	if appConfig.RedisAddress != "" {
		redisClient := notify.NewRedisClient(appConfig.RedisAddress, appConfig.RedisPassword, 0)
		defer redisClient.Close()
		redisPublisher, err := notify.NewRedisPublisher(notify.RedisPublisherConfig{
			Client:        redisClient,
			ChannelPrefix: appConfig.RedisChannel,
		})
		if err != nil {
			return err
		}
		publishers = append(publishers, redisPublisher)
		logger.Info("redis event fan-out enabled", zap.String("address", appConfig.RedisAddress))
	}

	documentsService, err := documents.NewService(documents.ServiceConfig{
		Store:     records,
		Blobs:     blobs,
		Publisher: publishers,
		Clock:     time.Now,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	tokenManager, err := newTokenIssuer(appConfig)
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager: tokenManager,
		Documents:    documentsService,
		Events:       dispatcher,
		BlobVerifier: signer,
		Blobs:        blobs,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(signalCtx)
	group.Go(func() error {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("store_backend", appConfig.StoreBackend))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	return nil
}

// openRecordStore returns the configured record store and a function releasing its resources.
func openRecordStore(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (store.Store, func(), error) {
	switch appConfig.StoreBackend {
	case config.StoreBackendDynamoDB:
		var options []func(*awsconfig.LoadOptions) error
		if appConfig.DynamoRegion != "" {
			options = append(options, awsconfig.WithRegion(appConfig.DynamoRegion))
		}
		awsConfig, err := awsconfig.LoadDefaultConfig(ctx, options...)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsConfig, func(o *dynamodb.Options) {
			if appConfig.DynamoEndpoint != "" {
				o.BaseEndpoint = aws.String(appConfig.DynamoEndpoint)
			}
		})
		records, err := dynamostore.New(dynamostore.Config{
			Client: client,
			Table:  appConfig.DynamoTable,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return records, func() {}, nil
	default:
		db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		records, err := sqlstore.New(sqlstore.Config{
			Database: db,
			Clock:    time.Now,
			Logger:   logger,
		})
		if err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		return records, func() { _ = sqlDB.Close() }, nil
	}
}

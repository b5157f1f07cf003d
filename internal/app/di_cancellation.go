package app

import (
	"context"
	"fmt"
	"time"

	cancellationRepository "github.com/allisson/archivist/internal/cancellation/repository"
	cancellationUsecase "github.com/allisson/archivist/internal/cancellation/usecase"
	"github.com/allisson/archivist/internal/config"
	"github.com/allisson/archivist/internal/directory"
	"github.com/allisson/archivist/internal/storage"
)

const storageOpenTimeout = 30 * time.Second

// CancellationRepository returns the cancellation repository.
func (c *Container) CancellationRepository() (cancellationUsecase.CancellationRepository, error) {
	var err error
	c.cancellationRepoInit.Do(func() {
		c.cancellationRepo, err = c.initCancellationRepository()
		if err != nil {
			c.initErrors["cancellationRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cancellationRepo"]; exists {
		return nil, storedErr
	}
	return c.cancellationRepo, nil
}

// ObjectStorage returns the object storage selected by STORAGE_PROVIDER.
func (c *Container) ObjectStorage() (storage.ObjectStorage, error) {
	var err error
	c.objectStorageInit.Do(func() {
		c.objectStorage, err = c.initObjectStorage()
		if err != nil {
			c.initErrors["objectStorage"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["objectStorage"]; exists {
		return nil, storedErr
	}
	return c.objectStorage, nil
}

// DirectoryClient returns the directory service client.
func (c *Container) DirectoryClient() (*directory.Client, error) {
	var err error
	c.directoryClientInit.Do(func() {
		c.directoryClient, err = directory.NewClient(directory.Config{
			BaseURL:        c.config.DirectoryBaseURL,
			Token:          c.config.DirectoryToken,
			Timeout:        c.config.DirectoryTimeout,
			RequestsPerSec: c.config.DirectoryRequestsPerSec,
			Burst:          c.config.DirectoryBurst,
		}, c.Logger())
		if err != nil {
			c.initErrors["directoryClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["directoryClient"]; exists {
		return nil, storedErr
	}
	return c.directoryClient, nil
}

// CancellationUseCase returns the cancellation lifecycle use case.
func (c *Container) CancellationUseCase() (cancellationUsecase.CancellationUseCase, error) {
	var err error
	c.cancellationUseCaseInit.Do(func() {
		c.cancellationUseCase, err = c.initCancellationUseCase()
		if err != nil {
			c.initErrors["cancellationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cancellationUseCase"]; exists {
		return nil, storedErr
	}
	return c.cancellationUseCase, nil
}

func (c *Container) initCancellationRepository() (cancellationUsecase.CancellationRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for cancellation repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return cancellationRepository.NewMySQLCancellationRepository(db), nil
	case "postgres":
		return cancellationRepository.NewPostgreSQLCancellationRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initObjectStorage opens the storage backend. The MinIO bucket is created when
// missing so a fresh deployment can upload on its first run.
func (c *Container) initObjectStorage() (storage.ObjectStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storageOpenTimeout)
	defer cancel()

	switch c.config.StorageProvider {
	case config.StorageMinIO:
		minioStorage, err := storage.NewMinIOStorage(storage.MinIOConfig{
			Endpoint:  c.config.MinIOEndpoint,
			AccessKey: c.config.MinIOAccessKey,
			SecretKey: c.config.MinIOSecretKey,
			UseSSL:    c.config.MinIOUseSSL,
			Region:    c.config.MinIORegion,
		})
		if err != nil {
			return nil, err
		}
		if err := minioStorage.EnsureBucket(ctx, c.config.StorageBucket); err != nil {
			return nil, fmt.Errorf("failed to ensure bucket %s: %w", c.config.StorageBucket, err)
		}
		return minioStorage, nil
	case config.StorageBlob:
		blobStorage, err := storage.OpenBlobStorage(ctx, c.config.StorageBlobURL)
		if err != nil {
			return nil, err
		}
		return blobStorage, nil
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", c.config.StorageProvider)
	}
}

func (c *Container) initCancellationUseCase() (cancellationUsecase.CancellationUseCase, error) {
	repo, err := c.CancellationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get cancellation repository for cancellation use case: %w", err)
	}

	archiveUseCase, err := c.ArchiveUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get archive use case for cancellation use case: %w", err)
	}

	objectStorage, err := c.ObjectStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to get object storage for cancellation use case: %w", err)
	}

	directoryClient, err := c.DirectoryClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get directory client for cancellation use case: %w", err)
	}

	baseUseCase := cancellationUsecase.NewCancellationUseCase(
		repo,
		archiveUseCase,
		objectStorage,
		directoryClient,
		cancellationUsecase.Config{
			Retention:   c.config.CancellationRetention,
			TriggerLead: c.config.CancellationTriggerLead,
			Dwell:       c.config.CancellationDwell,
			LinkExpiry:  c.config.CancellationDownloadLinkExpiry,
			Bucket:      c.config.StorageBucket,
			TempDir:     c.config.CancellationTempDir,
			BatchSize:   c.config.ArchiveBatchSize,
			MaxBatches:  c.config.ArchiveMaxBatches,
		},
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for cancellation use case: %w", err)
		}
		return cancellationUsecase.NewCancellationUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

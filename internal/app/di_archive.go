package app

import (
	"context"
	"fmt"

	archiveRepository "github.com/allisson/archivist/internal/archive/repository"
	archiveService "github.com/allisson/archivist/internal/archive/service"
	archiveUsecase "github.com/allisson/archivist/internal/archive/usecase"
	"github.com/allisson/archivist/internal/config"
	cryptoDomain "github.com/allisson/archivist/internal/crypto/domain"
	cryptoService "github.com/allisson/archivist/internal/crypto/service"
	custodyDomain "github.com/allisson/archivist/internal/custody/domain"
	custodyService "github.com/allisson/archivist/internal/custody/service"
)

// AEADManager returns the AEAD manager service.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// KMSService returns the KMS service used to open HSM keepers.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// KeyCustody returns the key custody backend selected by CUSTODY_PROVIDER.
func (c *Container) KeyCustody() (custodyDomain.KeyCustody, error) {
	var err error
	c.keyCustodyInit.Do(func() {
		c.keyCustody, err = c.initKeyCustody()
		if err != nil {
			c.initErrors["keyCustody"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyCustody"]; exists {
		return nil, storedErr
	}
	return c.keyCustody, nil
}

// EnvelopeService returns the envelope encryption service.
func (c *Container) EnvelopeService() (*archiveService.EnvelopeService, error) {
	var err error
	c.envelopeServiceInit.Do(func() {
		c.envelopeService, err = c.initEnvelopeService()
		if err != nil {
			c.initErrors["envelopeService"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["envelopeService"]; exists {
		return nil, storedErr
	}
	return c.envelopeService, nil
}

// IdentifierService returns the peppered identifier service.
func (c *Container) IdentifierService() (*archiveService.IdentifierService, error) {
	var err error
	c.identifierServiceInit.Do(func() {
		c.identifierService, err = archiveService.NewIdentifierService(c.config.ArchiveHashAlgorithm)
		if err != nil {
			c.initErrors["identifierService"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["identifierService"]; exists {
		return nil, storedErr
	}
	return c.identifierService, nil
}

// TestRecordRepository returns the short-term record repository.
func (c *Container) TestRecordRepository() (archiveUsecase.TestRecordRepository, error) {
	var err error
	c.testRecordRepoInit.Do(func() {
		c.testRecordRepo, err = c.initTestRecordRepository()
		if err != nil {
			c.initErrors["testRecordRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["testRecordRepo"]; exists {
		return nil, storedErr
	}
	return c.testRecordRepo, nil
}

// ArchiveRepository returns the long-term archive repository.
func (c *Container) ArchiveRepository() (archiveUsecase.ArchiveRepository, error) {
	var err error
	c.archiveRepoInit.Do(func() {
		c.archiveRepo, err = c.initArchiveRepository()
		if err != nil {
			c.initErrors["archiveRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["archiveRepo"]; exists {
		return nil, storedErr
	}
	return c.archiveRepo, nil
}

// ArchiveUseCase returns the archive migrator.
func (c *Container) ArchiveUseCase() (archiveUsecase.ArchiveUseCase, error) {
	var err error
	c.archiveUseCaseInit.Do(func() {
		c.archiveUseCase, err = c.initArchiveUseCase()
		if err != nil {
			c.initErrors["archiveUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["archiveUseCase"]; exists {
		return nil, storedErr
	}
	return c.archiveUseCase, nil
}

// initKeyCustody opens the configured custody backend. Only the HSM backend
// makes a remote call here.
func (c *Container) initKeyCustody() (custodyDomain.KeyCustody, error) {
	switch c.config.CustodyProvider {
	case config.CustodyKeystore:
		entries, err := custodyService.LoadKeystore(
			c.config.CustodyKeystorePath,
			c.config.CustodyKeystoreAliasPrefix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load keystore: %w", err)
		}
		return custodyService.NewKeystoreCustody(entries, []byte(c.config.CustodyPepper)), nil
	case config.CustodyHSM:
		ctx, cancel := context.WithTimeout(context.Background(), c.config.CustodyRequestTimeout)
		defer cancel()

		keeper, err := c.KMSService().OpenKeeper(ctx, c.config.CustodyHSMKeyURI)
		if err != nil {
			return nil, fmt.Errorf("failed to open hsm keeper: %w", err)
		}
		custody, err := custodyService.NewHSMCustody(
			keeper,
			c.config.CustodyHSMWrappedPepper,
			c.config.CustodyRequestTimeout,
		)
		if err != nil {
			_ = keeper.Close()
			return nil, err
		}
		return custody, nil
	case config.CustodyTransit:
		client, err := custodyService.NewTransitClient(
			c.config.CustodyTransitAddress,
			c.config.CustodyTransitToken,
		)
		if err != nil {
			return nil, err
		}
		return custodyService.NewTransitCustody(client, custodyService.TransitConfig{
			KeyName:        c.config.CustodyTransitKeyName,
			PepperPath:     c.config.CustodyTransitPepperPath,
			RequestTimeout: c.config.CustodyRequestTimeout,
			CacheTTL:       c.config.CustodyPublicKeyCacheTTL,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported custody provider: %s", c.config.CustodyProvider)
	}
}

func (c *Container) initEnvelopeService() (*archiveService.EnvelopeService, error) {
	algorithm, err := cryptoDomain.ParseAlgorithm(c.config.ArchiveSecretAlgorithm)
	if err != nil {
		return nil, err
	}

	custody, err := c.KeyCustody()
	if err != nil {
		return nil, fmt.Errorf("failed to get key custody for envelope service: %w", err)
	}

	return archiveService.NewEnvelopeService(c.AEADManager(), custody, algorithm), nil
}

func (c *Container) initTestRecordRepository() (archiveUsecase.TestRecordRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for test record repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return archiveRepository.NewMySQLTestRecordRepository(db), nil
	case "postgres":
		return archiveRepository.NewPostgreSQLTestRecordRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initArchiveRepository() (archiveUsecase.ArchiveRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for archive repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return archiveRepository.NewMySQLArchiveRepository(db), nil
	case "postgres":
		return archiveRepository.NewPostgreSQLArchiveRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initArchiveUseCase() (archiveUsecase.ArchiveUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for archive use case: %w", err)
	}

	recordRepo, err := c.TestRecordRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get test record repository for archive use case: %w", err)
	}

	archiveRepo, err := c.ArchiveRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get archive repository for archive use case: %w", err)
	}

	custody, err := c.KeyCustody()
	if err != nil {
		return nil, fmt.Errorf("failed to get key custody for archive use case: %w", err)
	}

	envelope, err := c.EnvelopeService()
	if err != nil {
		return nil, fmt.Errorf("failed to get envelope service for archive use case: %w", err)
	}

	identifier, err := c.IdentifierService()
	if err != nil {
		return nil, fmt.Errorf("failed to get identifier service for archive use case: %w", err)
	}

	baseUseCase := archiveUsecase.NewArchiveUseCase(
		txManager,
		recordRepo,
		archiveRepo,
		custody,
		envelope,
		identifier,
		archiveUsecase.Config{
			BatchSize:  c.config.ArchiveBatchSize,
			MaxBatches: c.config.ArchiveMaxBatches,
		},
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for archive use case: %w", err)
		}
		return archiveUsecase.NewArchiveUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

package app

import (
	"context"
	"fmt"

	artifactService "github.com/echocipher/carrier/internal/artifact/service"
	artifactUseCase "github.com/echocipher/carrier/internal/artifact/usecase"
)

// ArtifactBackend returns the blob backend selected by ARTIFACT_STORE_DRIVER.
func (c *Container) ArtifactBackend() (artifactService.Backend, error) {
	var err error
	c.artifactBackendInit.Do(func() {
		c.artifactBackend, err = c.initArtifactBackend()
		if err != nil {
			c.initErrors["artifactBackend"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["artifactBackend"]; exists {
		return nil, storedErr
	}
	return c.artifactBackend, nil
}

// StoreUseCase returns the artifact store.
func (c *Container) StoreUseCase() (artifactUseCase.StoreUseCase, error) {
	var err error
	c.storeUseCaseInit.Do(func() {
		c.storeUseCase, err = c.initStoreUseCase()
		if err != nil {
			c.initErrors["storeUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["storeUseCase"]; exists {
		return nil, storedErr
	}
	return c.storeUseCase, nil
}

func (c *Container) initArtifactBackend() (artifactService.Backend, error) {
	ctx := context.Background()

	switch c.config.ArtifactStoreDriver {
	case "", "gocloud":
		backend, err := artifactService.NewGoCloudBackend(ctx, c.config.ArtifactBucketURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open gocloud artifact bucket: %w", err)
		}
		return backend, nil
	case "minio":
		backend, err := artifactService.NewMinIOBackend(ctx, artifactService.MinIOConfig{
			Endpoint:  c.config.MinIOEndpoint,
			AccessKey: c.config.MinIOAccessKey,
			SecretKey: c.config.MinIOSecretKey,
			UseSSL:    c.config.MinIOUseSSL,
			Bucket:    c.config.ArtifactBucket,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open minio artifact bucket: %w", err)
		}
		return backend, nil
	case "s3":
		backend, err := artifactService.NewS3Backend(ctx, artifactService.S3Config{
			Region:       c.config.S3Region,
			BaseEndpoint: c.config.S3BaseEndpoint,
			Bucket:       c.config.ArtifactBucket,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open s3 artifact bucket: %w", err)
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unsupported artifact store driver: %s", c.config.ArtifactStoreDriver)
	}
}

func (c *Container) initStoreUseCase() (artifactUseCase.StoreUseCase, error) {
	backend, err := c.ArtifactBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact backend for store use case: %w", err)
	}

	var maxTries uint
	if c.config.ArtifactDeleteMaxRetries > 0 {
		maxTries = uint(c.config.ArtifactDeleteMaxRetries)
	}

	baseUseCase := artifactUseCase.NewStoreUseCase(
		artifactUseCase.Config{DeleteMaxTries: maxTries},
		backend,
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for store use case: %w", err)
		}
		return artifactUseCase.NewStoreUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

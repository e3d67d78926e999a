package stores

import (
	"context"
	"fmt"
	"io"

	"calorie-tracker/config"
	"calorie-tracker/core"
	"calorie-tracker/stores/aws"
	"calorie-tracker/stores/badger"
	"calorie-tracker/stores/filesystem"
	"calorie-tracker/stores/memory"
	"calorie-tracker/stores/postgres"
	"calorie-tracker/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// GetMedium opens the durable medium named by cfg.StorageType. The returned
// closer releases backend resources and is never nil.
func GetMedium(ctx context.Context, cfg config.Config) (core.Medium, io.Closer, error) {
	storageField := logrus.Fields{
		"storageType": cfg.StorageType,
		"storageKey":  cfg.StorageKey,
	}

	var (
		medium core.Medium
		closer io.Closer = nopCloser{}
		err    error
	)

	switch cfg.StorageType {
	case "filesystem":
		storageField["basePath"] = cfg.LocalStoragePath
		medium, err = filesystem.NewStore(cfg.LocalStoragePath)
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		var s interface {
			core.Medium
			io.Closer
		}
		s, err = sqlite.NewStore(cfg.DataSourceName)
		medium, closer = s, s
	case "s3":
		storageField["bucketName"] = cfg.S3BucketName
		storageField["prefix"] = cfg.S3Prefix
		medium, err = aws.NewStore(ctx, aws.Options{
			Bucket:    cfg.S3BucketName,
			Prefix:    cfg.S3Prefix,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
	case "badger":
		storageField["path"] = cfg.BadgerPath
		var s interface {
			core.Medium
			io.Closer
		}
		s, err = badger.NewStore(cfg.BadgerPath)
		medium, closer = s, s
	case "postgres":
		var s interface {
			core.Medium
			io.Closer
		}
		s, err = postgres.NewStore(ctx, cfg.PostgresDSN)
		medium, closer = s, s
	default:
		storageField["storageType"] = "in-memory"
		storageField["quota"] = cfg.MemoryQuota
		medium = memory.NewStoreWithQuota(cfg.MemoryQuota)
	}

	if err != nil {
		logrus.WithFields(storageField).WithError(err).Error("Failed to open storage")
		return nil, nil, fmt.Errorf("open %s storage: %w", cfg.StorageType, err)
	}

	logrus.WithFields(storageField).Info("Use storage")
	return medium, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

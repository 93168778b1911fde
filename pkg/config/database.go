package config

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connections. Mongo is optional and nil when
// MONGO_URI is unset.
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
}

// InitDB initializes and returns the database connections
func InitDB(cfg *Config) (*DB, error) {
	if cfg.PostgresConnStr == "" {
		return nil, errors.New("POSTGRES_CONN_STR environment variable not set")
	}

	postgresDB, err := initPostgres(cfg.PostgresConnStr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to PostgreSQL")
	}

	db := &DB{Postgres: postgresDB}
	if cfg.MongoURI == "" {
		logrus.Info("MONGO_URI not set, prune run history is disabled")
		return db, nil
	}

	mongoClient, err := initMongo(cfg.MongoURI)
	if err != nil {
		db.CloseDB()
		return nil, errors.Wrap(err, "failed to connect to MongoDB")
	}
	db.Mongo = mongoClient
	return db, nil
}

// initPostgres initializes the PostgreSQL database connection using GORM
func initPostgres(connStr string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}

	logrus.Info("successfully connected to PostgreSQL")
	return db, nil
}

// initMongo initializes the MongoDB connection
func initMongo(uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	logrus.Info("successfully connected to MongoDB")
	return client, nil
}

// CloseDB closes the database connections
func (db *DB) CloseDB() {
	if db.Postgres != nil {
		sqlDB, err := db.Postgres.DB()
		if err != nil {
			logrus.WithError(err).Error("error getting SQL DB from GORM")
		} else if err := sqlDB.Close(); err != nil {
			logrus.WithError(err).Error("error closing PostgreSQL connection")
		} else {
			logrus.Info("PostgreSQL connection closed")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			logrus.WithError(err).Error("error closing MongoDB connection")
		} else {
			logrus.Info("MongoDB connection closed")
		}
	}
}

package utils

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Broker   BrokerConfig
	Review   ReviewConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type HTTPConfig struct {
	BasePath        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig covers every supported backend; Driver selects which
// of the remaining fields are read.
type DatabaseConfig struct {
	Driver   string
	MongoURI string
	MongoDB  string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
	Migrate  bool
}

type JWTConfig struct {
	Secret string
}

// BrokerConfig drives the event publisher. BufferSize bounds how many
// events wait for delivery; further events are dropped.
type BrokerConfig struct {
	URL            string
	Exchange       string
	BufferSize     int
	DialTimeout    time.Duration
	PublishTimeout time.Duration
}

type ReviewConfig struct {
	DescriptionMax  int
	CheckReferences bool
}

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "movie-reviews")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("HTTP_BASE_PATH", "/api/reviews")
	viper.SetDefault("HTTP_READ_TIMEOUT", "15s")
	viper.SetDefault("HTTP_WRITE_TIMEOUT", "15s")
	viper.SetDefault("HTTP_SHUTDOWN_TIMEOUT", "10s")
	viper.SetDefault("DB_DRIVER", DriverMongo)
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DB", "movies")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_MIGRATE", true)
	viper.SetDefault("AMQP_EXCHANGE", "reviews")
	viper.SetDefault("AMQP_BUFFER_SIZE", 256)
	viper.SetDefault("AMQP_DIAL_TIMEOUT", "5s")
	viper.SetDefault("AMQP_PUBLISH_TIMEOUT", "5s")
	viper.SetDefault("REVIEW_DESCRIPTION_MAX", 2000)
	viper.SetDefault("REVIEW_CHECK_REFERENCES", false)

	// .env is optional, the environment alone is enough in containers
	if err := viper.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		HTTP: HTTPConfig{
			BasePath:        viper.GetString("HTTP_BASE_PATH"),
			ReadTimeout:     viper.GetDuration("HTTP_READ_TIMEOUT"),
			WriteTimeout:    viper.GetDuration("HTTP_WRITE_TIMEOUT"),
			ShutdownTimeout: viper.GetDuration("HTTP_SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Driver:   viper.GetString("DB_DRIVER"),
			MongoURI: viper.GetString("MONGO_URI"),
			MongoDB:  viper.GetString("MONGO_DB"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
			Migrate:  viper.GetBool("DB_MIGRATE"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
		Broker: BrokerConfig{
			URL:            viper.GetString("AMQP_URL"),
			Exchange:       viper.GetString("AMQP_EXCHANGE"),
			BufferSize:     viper.GetInt("AMQP_BUFFER_SIZE"),
			DialTimeout:    viper.GetDuration("AMQP_DIAL_TIMEOUT"),
			PublishTimeout: viper.GetDuration("AMQP_PUBLISH_TIMEOUT"),
		},
		Review: ReviewConfig{
			DescriptionMax:  viper.GetInt("REVIEW_DESCRIPTION_MAX"),
			CheckReferences: viper.GetBool("REVIEW_CHECK_REFERENCES"),
		},
	}

	return config, nil
}

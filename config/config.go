// api/config/config.go
package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Auth          AuthConfiguration
	Redis         RedisConfiguration
	Elasticsearch ElasticsearchConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port string
}

// AuthConfiguration stores the authorization engine settings
type AuthConfiguration struct {
	Remote  RemoteConfiguration
	Cache   CacheConfiguration
	Breaker BreakerConfiguration
}

// RemoteConfiguration stores the permission service connection settings
type RemoteConfiguration struct {
	Endpoint string
	Timeout  string
	APIKey   string
}

// CacheConfiguration stores the decision cache settings
type CacheConfiguration struct {
	Backend         string
	MaxEntries      int
	BaseTTL         string
	ExtendedTTL     string
	CleanupInterval string
}

// BreakerConfiguration stores the circuit breaker settings
type BreakerConfiguration struct {
	FailureThreshold int
	SuccessThreshold int
	CallTimeout      string
	OpenTimeout      string
}

// RedisConfiguration stores data for Redis connection
type RedisConfiguration struct {
	Addr string
}

// ElasticsearchConfiguration stores data for Elasticsearch connection
type ElasticsearchConfiguration struct {
	URL string
}

var config *Configuration

func InitConfig() error {
	viper.AddConfigPath("config") // path to look for the config file in
	viper.SetConfigName("config") // name of the config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name

	viper.AutomaticEnv() // read in environment variables that match

	// Set default configurations
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("elasticsearch.url", "http://localhost:9200")
	viper.SetDefault("log.dir", "logging")

	viper.SetDefault("auth.remote.endpoint", "http://localhost:50051")
	viper.SetDefault("auth.remote.timeout", "2s")

	viper.SetDefault("auth.cache.backend", "memory")
	viper.SetDefault("auth.cache.maxEntries", 10000)
	viper.SetDefault("auth.cache.baseTTL", "5m")
	viper.SetDefault("auth.cache.extendedTTL", "30m")
	viper.SetDefault("auth.cache.cleanupInterval", "1m")

	viper.SetDefault("auth.breaker.failureThreshold", 5)
	viper.SetDefault("auth.breaker.successThreshold", 2)
	viper.SetDefault("auth.breaker.callTimeout", "1s")
	viper.SetDefault("auth.breaker.openTimeout", "30s")

	viper.SetDefault("ratelimit.requests", 100)
	viper.SetDefault("ratelimit.window", "1m")

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	err := viper.Unmarshal(&config)
	if err != nil {
		return err
	}

	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

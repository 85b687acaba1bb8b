package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Worker    WorkerConfig
	Upload    UploadConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type StorageConfig struct {
	UploadsDir string
	OutputDir  string
	StaticDir  string
}

type WorkerConfig struct {
	PythonBin      string
	Script         string
	TimeoutSeconds int // 0 disables the timeout
}

type UploadConfig struct {
	MaxSizeMB int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	UploadPerHour int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("storage.uploads_dir", "uploads")
	viper.SetDefault("storage.output_dir", "output")
	viper.SetDefault("storage.static_dir", "static")
	viper.SetDefault("worker.python_bin", "python3")
	viper.SetDefault("worker.script", "audio_processor.py")
	viper.SetDefault("worker.timeout_seconds", 0)
	viper.SetDefault("upload.max_size_mb", 50)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.upload_per_hour", 50)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Storage: StorageConfig{
			UploadsDir: viper.GetString("storage.uploads_dir"),
			OutputDir:  viper.GetString("storage.output_dir"),
			StaticDir:  viper.GetString("storage.static_dir"),
		},
		Worker: WorkerConfig{
			PythonBin:      viper.GetString("worker.python_bin"),
			Script:         viper.GetString("worker.script"),
			TimeoutSeconds: viper.GetInt("worker.timeout_seconds"),
		},
		Upload: UploadConfig{
			MaxSizeMB: viper.GetInt("upload.max_size_mb"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			UploadPerHour: viper.GetInt("ratelimit.upload_per_hour"),
		},
	}

	return cfg, nil
}

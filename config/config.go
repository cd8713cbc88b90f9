// config/config.go
package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// --- Sub-structs mirroring the YAML layout ---

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	AllowedOrigins  []string      `mapstructure:"allowedOrigins"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"dbName"`
	// Transactions require a replica set; standalone servers must turn this off.
	Transactions bool `mapstructure:"transactions"`
}

type JWTConfig struct {
	Secret            string        `mapstructure:"secret"`
	Expiration        time.Duration `mapstructure:"expiration"`
	RefreshExpiration time.Duration `mapstructure:"refreshExpiration"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

// Enabled reports whether enough S3 settings are present to build an uploader.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.Region != ""
}

// GatewayConfig points at the external logistics system that owns routing sheets.
type GatewayConfig struct {
	BaseURL string        `mapstructure:"baseURL"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	RateLimitRPS int    `mapstructure:"rateLimitRPS"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type BotConfig struct {
	TelegramToken string `mapstructure:"telegramToken"`
	UploadFolder  string `mapstructure:"uploadFolder"`
}

type AdminConfig struct {
	SeedLogin    string `mapstructure:"seedLogin"`
	SeedPassword string `mapstructure:"seedPassword"`
}

// --- Root config ---

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	S3      S3Config      `mapstructure:"s3"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
	Bot     BotConfig     `mapstructure:"bot"`
	Admin   AdminConfig   `mapstructure:"admin"`
}

var envBindings = map[string]string{
	"server.port":            "SERVER_PORT",
	"server.readTimeout":     "SERVER_READ_TIMEOUT",
	"server.writeTimeout":    "SERVER_WRITE_TIMEOUT",
	"server.shutdownTimeout": "SERVER_SHUTDOWN_TIMEOUT",
	"mongo.uri":              "MONGO_URI",
	"mongo.dbName":           "MONGO_DBNAME",
	"mongo.transactions":     "MONGO_TRANSACTIONS",
	"jwt.secret":             "JWT_SECRET",
	"jwt.expiration":         "JWT_EXPIRATION",
	"jwt.refreshExpiration":  "JWT_REFRESH_EXPIRATION",
	"s3.bucket":              "S3_BUCKET",
	"s3.region":              "S3_REGION",
	"s3.accessKeyID":         "S3_ACCESS_KEY_ID",
	"s3.secretAccessKey":     "S3_SECRET_ACCESS_KEY",
	"s3.cloudFrontDomain":    "S3_CLOUDFRONT_DOMAIN",
	"gateway.baseURL":        "GATEWAY_BASE_URL",
	"gateway.token":          "GATEWAY_TOKEN",
	"gateway.timeout":        "GATEWAY_TIMEOUT",
	"redis.addr":             "REDIS_ADDR",
	"redis.password":         "REDIS_PASSWORD",
	"redis.db":               "REDIS_DB",
	"redis.rateLimitRPS":     "RATE_LIMIT_RPS",
	"log.level":              "LOG_LEVEL",
	"log.file":               "LOG_FILE",
	"bot.telegramToken":      "TG_BOT_TOKEN",
	"bot.uploadFolder":       "BOT_UPLOAD_FOLDER",
	"admin.seedLogin":        "ADMIN_SEED_LOGIN",
	"admin.seedPassword":     "ADMIN_SEED_PASSWORD",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.shutdownTimeout", 20*time.Second)
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("mongo.dbName", "delivery")
	v.SetDefault("mongo.transactions", true)
	v.SetDefault("jwt.expiration", 24*time.Hour)
	v.SetDefault("jwt.refreshExpiration", 5*365*24*time.Hour)
	v.SetDefault("gateway.timeout", 15*time.Second)
	v.SetDefault("redis.rateLimitRPS", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("bot.uploadFolder", "registrations")
}

// LoadConfig reads config.yaml from path and overrides it with environment
// variables. A missing file is not an error; env vars alone are enough.
func LoadConfig(path string) (config Config, err error) {
	// .env is optional, it only seeds the process environment.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)

	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

// Validate checks the settings every binary needs.
func (c Config) Validate() error {
	if c.Mongo.URI == "" {
		return errors.New("mongo.uri (MONGO_URI) is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret (JWT_SECRET) is required")
	}
	return nil
}

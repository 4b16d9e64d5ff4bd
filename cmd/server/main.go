package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/TerribleTurtle/squad-sync/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 8080,
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	membersLimit = configVar[int]{
		envKey:       "SERVER_MEMBERS_LIMIT",
		flagKey:      "members-limit",
		defaultValue: 4,
	}
	gracePeriod = configVar[time.Duration]{
		envKey:       "SERVER_GRACE_PERIOD",
		flagKey:      "grace-period",
		defaultValue: 10 * time.Second,
	}
	clipTTL = configVar[time.Duration]{
		envKey:       "SERVER_CLIP_TTL",
		flagKey:      "clip-ttl",
		defaultValue: 24 * time.Hour,
	}
	uploadURLTTL = configVar[time.Duration]{
		envKey:       "SERVER_UPLOAD_URL_TTL",
		flagKey:      "upload-url-ttl",
		defaultValue: 15 * time.Minute,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
	s3Region = configVar[string]{
		envKey:       "S3_REGION",
		flagKey:      "s3-region",
		defaultValue: "us-east-1",
	}
	s3Bucket = configVar[string]{
		envKey:       "S3_BUCKET",
		flagKey:      "s3-bucket",
		defaultValue: "",
	}
	s3Endpoint = configVar[string]{
		envKey:       "S3_ENDPOINT",
		flagKey:      "s3-endpoint",
		defaultValue: "",
	}
	s3PublicURL = configVar[string]{
		envKey:       "S3_PUBLIC_URL",
		flagKey:      "s3-public-url",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(membersLimit.flagKey, membersLimit.defaultValue, "Maximum number of members in a room")
	pflag.Duration(gracePeriod.flagKey, gracePeriod.defaultValue, "How long a dropped member may reconnect before removal")
	pflag.Duration(clipTTL.flagKey, clipTTL.defaultValue, "How long clip records are retained")
	pflag.Duration(uploadURLTTL.flagKey, uploadURLTTL.defaultValue, "Presigned upload url lifetime")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.String(s3Region.flagKey, s3Region.defaultValue, "S3 region")
	pflag.String(s3Bucket.flagKey, s3Bucket.defaultValue, "S3 bucket for clip uploads")
	pflag.String(s3Endpoint.flagKey, s3Endpoint.defaultValue, "S3 endpoint override for s3-compatible storage")
	pflag.String(s3PublicURL.flagKey, s3PublicURL.defaultValue, "Public base url for uploaded clips")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(membersLimit.flagKey, membersLimit.envKey)
	viper.BindEnv(gracePeriod.flagKey, gracePeriod.envKey)
	viper.BindEnv(clipTTL.flagKey, clipTTL.envKey)
	viper.BindEnv(uploadURLTTL.flagKey, uploadURLTTL.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)
	viper.BindEnv(s3Region.flagKey, s3Region.envKey)
	viper.BindEnv(s3Bucket.flagKey, s3Bucket.envKey)
	viper.BindEnv(s3Endpoint.flagKey, s3Endpoint.envKey)
	viper.BindEnv(s3PublicURL.flagKey, s3PublicURL.envKey)

	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(membersLimit.flagKey, membersLimit.defaultValue)
	viper.SetDefault(gracePeriod.flagKey, gracePeriod.defaultValue)
	viper.SetDefault(clipTTL.flagKey, clipTTL.defaultValue)
	viper.SetDefault(uploadURLTTL.flagKey, uploadURLTTL.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)
	viper.SetDefault(s3Region.flagKey, s3Region.defaultValue)
	viper.SetDefault(s3Bucket.flagKey, s3Bucket.defaultValue)
	viper.SetDefault(s3Endpoint.flagKey, s3Endpoint.defaultValue)
	viper.SetDefault(s3PublicURL.flagKey, s3PublicURL.defaultValue)

	config := &app.AppConfig{
		Host:          viper.GetString(host.flagKey),
		Port:          viper.GetInt(port.flagKey),
		LogLevel:      viper.GetString(logLevel.flagKey),
		MembersLimit:  viper.GetInt(membersLimit.flagKey),
		GracePeriod:   viper.GetDuration(gracePeriod.flagKey),
		ClipTTL:       viper.GetDuration(clipTTL.flagKey),
		UploadURLTTL:  viper.GetDuration(uploadURLTTL.flagKey),
		RedisHost:     viper.GetString(redisHost.flagKey),
		RedisPort:     viper.GetInt(redisPort.flagKey),
		RedisPassword: viper.GetString(redisPassword.flagKey),
		S3Region:      viper.GetString(s3Region.flagKey),
		S3Bucket:      viper.GetString(s3Bucket.flagKey),
		S3Endpoint:    viper.GetString(s3Endpoint.flagKey),
		S3PublicURL:   viper.GetString(s3PublicURL.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatal(err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}

package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env          string
		Build        string
		AppName      string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string
		WorkDir      string

		Server     ServerConfig
		Database   DatabaseConfig
		Submission SubmissionConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugAddress              string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite3
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite3 only
	}

	// SubmissionConfig holds the daily vocabulary exercise rules.
	SubmissionConfig struct {
		BaselineEntryCount  int
		PenaltyPerMissedDay int
		StarMin             int
		StarMax             int
		Timezone            string
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// Location resolves the configured timezone; calendar days are computed in it.
func (sc SubmissionConfig) Location() (*time.Location, error) {
	if sc.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(sc.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", sc.Timezone, err)
	}
	return loc, nil
}

func NewConfig() *Config {
	vip := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	wd := Getwd()

	// defaults
	vip.SetTypeByDefaultValue(true)
	vip.SetDefault("build", "develop")
	vip.SetDefault("debug", env == "DEV")
	vip.SetDefault("testMode", env == "TEST")
	vip.SetDefault("appName", "Kosakata")
	vip.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	vip.SetDefault("rollbarToken", "")

	vip.SetDefault("server.host", "localhost")
	vip.SetDefault("server.address", ":8000")
	vip.SetDefault("server.debugAddress", ":4000")
	vip.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	vip.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	vip.SetDefault("server.shutdownTimeout", 5*time.Second)

	vip.SetDefault("database.engine", "postgres")
	vip.SetDefault("database.host", "localhost")
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.name", "kosakata")
	vip.SetDefault("database.user", "kosakata")
	vip.SetDefault("database.password", "")
	vip.SetDefault("database.adminUser", "")
	vip.SetDefault("database.adminPassword", "")
	vip.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")
	vip.SetDefault("database.path", filepath.Join(wd, "kosakata.db"))

	vip.SetDefault("submission.baselineEntryCount", 5)
	vip.SetDefault("submission.penaltyPerMissedDay", 3)
	vip.SetDefault("submission.starMin", 0)
	vip.SetDefault("submission.starMax", 3)
	vip.SetDefault("submission.timezone", "UTC")

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	// eg: DEV_DATABASE_ENGINE=sqlite3
	vip.SetEnvPrefix(env)
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()

	return &Config{
		Env:          env,
		Build:        vip.GetString("build"),
		AppName:      vip.GetString("appName"),
		Debug:        vip.GetBool("debug"),
		TestMode:     vip.GetBool("testMode"),
		SecretKey:    vip.GetString("secretKey"),
		RollbarToken: vip.GetString("rollbarToken"),
		WorkDir:      wd,
		Server: ServerConfig{
			Host:                      vip.GetString("server.host"),
			Address:                   vip.GetString("server.address"),
			DebugAddress:              vip.GetString("server.debugAddress"),
			JWTExpirationDelta:        vip.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: vip.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           vip.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        vip.GetString("database.engine"),
			Host:          vip.GetString("database.host"),
			Port:          vip.GetString("database.port"),
			Name:          vip.GetString("database.name"),
			User:          vip.GetString("database.user"),
			Password:      vip.GetString("database.password"),
			AdminUser:     vip.GetString("database.adminUser"),
			AdminPassword: vip.GetString("database.adminPassword"),
			DisableTLS:    vip.GetBool("database.disableTLS"),
			Path:          vip.GetString("database.path"),
		},
		Submission: SubmissionConfig{
			BaselineEntryCount:  vip.GetInt("submission.baselineEntryCount"),
			PenaltyPerMissedDay: vip.GetInt("submission.penaltyPerMissedDay"),
			StarMin:             vip.GetInt("submission.starMin"),
			StarMax:             vip.GetInt("submission.starMax"),
			Timezone:            vip.GetString("submission.timezone"),
		},
	}
}

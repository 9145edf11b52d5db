package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int            `json:"port"`
	Env      string         `json:"env"`
	Pepper   string         `json:"pepper"`
	HMACKey  string         `json:"hmac_key"`
	Database PostgresConfig `json:"database"`
	Redis    RedisConfig    `json:"redis"`
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (pc PostgresConfig) ConnectionInfo() string {
	if pc.Password == "" {
		return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable", pc.Host, pc.Port, pc.User, pc.Name)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", pc.Host, pc.Port, pc.User, pc.Password, pc.Name)
}

// RedisConfig points the cache store and the task queue at the same redis
// instance.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func DefaultConfig() Config {
	return Config{
		Port:     1111,
		Env:      "dev",
		Pepper:   "secret-random-string",
		HMACKey:  "secret-hmac-key",
		Database: DefaultPostgresConfig(),
		Redis:    DefaultRedisConfig(),
	}
}

func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "",
		Name:     "chirper",
	}
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr: "localhost:6379",
	}
}

// LoadConfig reads .config.json, falling back to the default dev setup if
// none is present. In production the file is required. A .env file, if
// present, overrides single values on top of either.
func LoadConfig(prod bool) Config {
	c := DefaultConfig()
	f, err := os.Open(".config.json")
	if err != nil {
		if prod {
			panic("a .config.json file is required in production")
		}
	} else {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&c); err != nil {
			panic(err)
		}
		fmt.Println("Successfully loaded .config.json")
	}

	godotenv.Load()
	applyEnvOverrides(&c)
	return c
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("DATABASE_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DATABASE_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DATABASE_NAME"); v != "" {
		c.Database.Name = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
}

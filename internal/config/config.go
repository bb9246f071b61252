package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	commoncfg "mediroute-data/common/config"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config mediroute-data（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	DBEnabled    bool                     `yaml:"db_enabled"`
	Database     commoncfg.DatabaseConfig `yaml:"database"`
	RedisEnabled bool                     `yaml:"redis_enabled"`
	Redis        commoncfg.RedisConfig    `yaml:"redis"`
	MQTT         MQTTConfig               `yaml:"mqtt"`
	Hospital     HospitalConfig           `yaml:"hospital"`
	Log          struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	StaticDir  string `yaml:"static_dir"`  // 前端静态文件目录
	OfflineDir string `yaml:"offline_dir"` // 离线缓存 BadgerDB 目录
}

// MQTTConfig 通知推送（默认禁用）
type MQTTConfig struct {
	Enabled              bool `yaml:"enabled"`
	commoncfg.MQTTConfig `yaml:",inline"`
	TopicPrefix          string `yaml:"topic_prefix"` // <prefix>/drivers/<email>/notifications
}

// HospitalConfig 医院接收端
type HospitalConfig struct {
	IntakeURL   string        `yaml:"intake_url"`   // 为空则 send 不转发
	DefaultName string        `yaml:"default_name"` // 病人未选择医院时通知里使用的名称
	Timeout     time.Duration `yaml:"timeout"`
}

// ConfigFileEnv 可选 YAML 覆盖文件
const ConfigFileEnv = "MEDIROUTE_CONFIG"

// Load 读取 .env、环境变量，再叠加可选 YAML 文件
func Load() (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":5000")

	// 默认启用 DB；连接失败时 main 回退到内存存储
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "mediroute",
		SSLMode:  "disable",
		MaxConns: 20,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "mediroute-data"
	cfg.MQTT.QoS = 1
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "mediroute")

	cfg.Hospital.IntakeURL = getEnv("HOSPITAL_INTAKE_URL", "")
	cfg.Hospital.DefaultName = getEnv("HOSPITAL_DEFAULT_NAME", "City General Hospital")
	cfg.Hospital.Timeout = parseDuration(getEnv("HOSPITAL_TIMEOUT", "10s"), 10*time.Second)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.StaticDir = getEnv("STATIC_DIR", "./public")
	cfg.OfflineDir = getEnv("OFFLINE_DIR", "./data/offline")

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// overlayFile 只覆盖文件中出现的键
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	// 纯数字按秒
	if n := parseInt(s, -1); n >= 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

// Package config loads the hub and door node settings with viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"power_windows/internal/hardware"
	"power_windows/internal/models"

	"github.com/spf13/viper"
)

const (
	envPrefix  = "PW"
	configPath = "configs"
)

type DB struct {
	Path string `mapstructure:"path"`
}

type MQTT struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
	// Interval is how often doors announce themselves; the hub forgets a door
	// after three missed announcements.
	Interval time.Duration `mapstructure:"interval"`
}

// Enabled reports whether a broker is configured.
func (m MQTT) Enabled() bool { return m.Broker != "" }

type Kafka struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Enabled reports whether at least one broker is configured.
func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

// Door is the door node configuration.
type Door struct {
	Port          string              `mapstructure:"port"`
	LogLevel      string              `mapstructure:"log_level"`
	DB            DB                  `mapstructure:"db"`
	Identity      models.DoorIdentity `mapstructure:"identity"`
	MAC           string              `mapstructure:"mac"`
	AdvertiseIP   string              `mapstructure:"advertise_ip"`
	Debug         bool                `mapstructure:"debug"`
	Tick          time.Duration       `mapstructure:"tick"`
	SettleDelay   time.Duration       `mapstructure:"settle_delay"`
	CommandBuffer int                 `mapstructure:"command_buffer"`
	Thresholds    models.DoorConfig   `mapstructure:"thresholds"`
	Hardware      hardware.Config     `mapstructure:"hardware"`
	MQTT          MQTT                `mapstructure:"mqtt"`
	Kafka         Kafka               `mapstructure:"kafka"`
}

// DoorBinding ties a door identity to its MAC and the hub ADC channels of its button pair.
type DoorBinding struct {
	Identity     models.DoorIdentity `mapstructure:"identity"`
	MAC          string              `mapstructure:"mac"`
	OpenChannel  uint8               `mapstructure:"open_channel"`
	CloseChannel uint8               `mapstructure:"close_channel"`
}

// StaticClient is a link-layer entry for deployments without presence announcements.
type StaticClient struct {
	MAC string `mapstructure:"mac"`
	IP  string `mapstructure:"ip"`
}

type JWT struct {
	SigningKey string        `mapstructure:"signing_key"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// Hub is the hub node configuration.
type Hub struct {
	Port             string            `mapstructure:"port"`
	LogLevel         string            `mapstructure:"log_level"`
	DB               DB                `mapstructure:"db"`
	DoorPort         string            `mapstructure:"door_port"`
	PollInterval     time.Duration     `mapstructure:"poll_interval"`
	RegistryInterval time.Duration     `mapstructure:"registry_interval"`
	RequestTimeout   time.Duration     `mapstructure:"request_timeout"`
	QueueSize        int               `mapstructure:"queue_size"`
	Doors            []DoorBinding     `mapstructure:"doors"`
	Clients          []StaticClient    `mapstructure:"clients"`
	Thresholds       models.DoorConfig `mapstructure:"thresholds"`
	Hardware         hardware.Config   `mapstructure:"hardware"`
	MQTT             MQTT              `mapstructure:"mqtt"`
	Kafka            Kafka             `mapstructure:"kafka"`
	JWT              JWT               `mapstructure:"jwt"`
}

func setCommonDefaults(v *viper.Viper, dbFile string) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db.path", dbFile)
	v.SetDefault("hardware.driver", "sim")
	v.SetDefault("hardware.serial_port", "")
	v.SetDefault("hardware.baud", 115200)
	v.SetDefault("hardware.timeout", 200*time.Millisecond)
	v.SetDefault("hardware.travel", 0)
	v.SetDefault("hardware.stall_mv", 0)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", "power-windows/presence")
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.interval", time.Second)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "power-windows.motion-events")

	def := models.DefaultDoorConfig()
	v.SetDefault("thresholds.opening_current", def.OpeningCurrentThreshold)
	v.SetDefault("thresholds.closing_current", def.ClosingCurrentThreshold)
	v.SetDefault("thresholds.handle_time_ms", def.HandleTimeThresholdMs)
}

func setDoorDefaults(v *viper.Viper) {
	setCommonDefaults(v, "door.db")
	v.SetDefault("port", "80")
	v.SetDefault("identity", string(models.RightDoor))
	v.SetDefault("mac", "")
	v.SetDefault("advertise_ip", "")
	v.SetDefault("debug", false)
	v.SetDefault("tick", 50*time.Millisecond)
	v.SetDefault("settle_delay", hardware.DefaultSettleDelay)
	v.SetDefault("command_buffer", 8)
}

func setHubDefaults(v *viper.Viper) {
	setCommonDefaults(v, "hub.db")
	v.SetDefault("door_port", "80")
	v.SetDefault("poll_interval", 100*time.Millisecond)
	v.SetDefault("registry_interval", time.Second)
	v.SetDefault("request_timeout", 2*time.Second)
	v.SetDefault("queue_size", 16)
	v.SetDefault("jwt.signing_key", "")
	v.SetDefault("jwt.ttl", time.Hour)
}

// LoadDoor reads the door configuration from file, or configs/door.yml when file is empty.
func LoadDoor(file string) (*Door, error) {
	v := viper.New()
	setDoorDefaults(v)
	if err := read(v, file, "door"); err != nil {
		return nil, err
	}
	var cfg Door
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode door config: %w", err)
	}
	if cfg.Identity == "" {
		return nil, errors.New("door identity is required")
	}
	return &cfg, nil
}

// LoadHub reads the hub configuration from file, or configs/hub.yml when file is empty.
func LoadHub(file string) (*Hub, error) {
	v := viper.New()
	setHubDefaults(v)
	if err := read(v, file, "hub"); err != nil {
		return nil, err
	}
	var cfg Hub
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode hub config: %w", err)
	}
	if len(cfg.Doors) == 0 {
		return nil, errors.New("hub config lists no doors")
	}
	if cfg.JWT.SigningKey == "" {
		return nil, errors.New("jwt.signing_key is required")
	}
	return &cfg, nil
}

// read loads file (or the named file under configs/) and enables PW_* overrides.
// A missing default file is not an error; a missing explicit file is.
func read(v *viper.Viper, file, name string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(configPath)
		v.SetConfigName(name)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read %s config: %w", name, err)
	}
	return nil
}

package config

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath   string `envconfig:"DB_PATH" default:"./data/duty.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// AdminIDs may run privileged commands; LogChatID receives duty events
	// (0 disables the announcements).
	AdminIDs  []int64 `envconfig:"ADMIN_IDS"`
	LogChatID int64   `envconfig:"LOG_CHAT_ID"`

	// Duty timing policy.
	ReminderMin     time.Duration `envconfig:"REMINDER_MIN" default:"20m"`
	ReminderMax     time.Duration `envconfig:"REMINDER_MAX" default:"30m"`
	AckWindow       time.Duration `envconfig:"ACK_WINDOW" default:"2m"`
	MaxDutyDuration time.Duration `envconfig:"MAX_DUTY_DURATION" default:"12h"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ReminderMin <= 0 || c.ReminderMax < c.ReminderMin {
		return errors.New("REMINDER_MIN/REMINDER_MAX must satisfy 0 < min <= max")
	}
	if c.AckWindow <= 0 {
		return errors.New("ACK_WINDOW must be positive")
	}
	if c.MaxDutyDuration <= 0 {
		return errors.New("MAX_DUTY_DURATION must be positive")
	}
	return nil
}

package sqlstore

import "time"

type GuildSettings struct {
	GuildID         string `gorm:"primaryKey;size:32"`
	Mode            uint8  `gorm:"not null"`
	DefaultJingleID string `gorm:"size:32"`
	ThemeSongs      bool   `gorm:"not null"`
	UpdatedAt       time.Time
}

type UserSettings struct {
	UserID      string `gorm:"primaryKey;size:32"`
	ThemeSongID string `gorm:"size:32"`
	UpdatedAt   time.Time
}

type CommandHistory struct {
	ID        uint   `gorm:"primaryKey"`
	GuildID   string `gorm:"index;size:32;not null"`
	ChannelID string `gorm:"size:32"`
	UserID    string `gorm:"size:32"`
	Username  string
	Command   string `gorm:"not null"`
	Args      string
	Failed    bool `gorm:"not null"`
	Datetime  time.Time
}

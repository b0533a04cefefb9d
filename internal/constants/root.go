package constants

import "time"

// SessionState represents the current screen of the TUI application
type SessionState int

const (
	AppName            = "habitrack"
	DefaultKeyringUser = "session-token"
	Version            = "v0.1.0"

	DefaultConfigDir = "~/.config/habitrack"
	ConfigFileName   = "config.yaml"
	CacheFileName    = "snapshot.db"
	LogFileName      = "habitrack.log"

	// DateFormat is the wire and display format for completion dates (YYYY-MM-DD)
	DateFormat = "2006-01-02"
	// MonthFormat is used by the calendar command's --month flag (YYYY-MM)
	MonthFormat = "2006-01"

	DefaultBaseURL   = "http://localhost:8080/api"
	DefaultHealthURL = "http://localhost:8080/health"
	DefaultTimeout   = 10 * time.Second

	// Warm-up probe: the server may be cold-starting on a free hosting tier.
	WarmUpAttempts    = 2
	WarmUpInitialWait = 500 * time.Millisecond
	WarmUpMaxWait     = 3 * time.Second
)

// Session States
const (
	StateToday SessionState = iota
	StateCalendar
	StateAddHabit
	StateConfirmDelete
	StateSessionExpired
)

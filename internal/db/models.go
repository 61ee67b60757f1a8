package db

import (
	"encoding/json"
	"time"
)

// Pending show statuses. PENDING is the only state the crawler produces;
// the moderation API owns the transitions out of it.
const (
	StatusPending  = "PENDING"
	StatusActive   = "ACTIVE"
	StatusRejected = "REJECTED"
)

// PendingShow maps shows.pending_shows, the moderation queue.
type PendingShow struct {
	PendingShowID   int64           `gorm:"column:pending_show_id;primaryKey;autoIncrement"`
	PendingShowUUID string          `gorm:"column:pending_show_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Status          string          `gorm:"column:status;type:text;not null;default:PENDING"`
	Name            string          `gorm:"column:name;type:text;not null;default:''"`
	StartDate       *time.Time      `gorm:"column:start_date;type:date"`
	City            *string         `gorm:"column:city;type:text"`
	SourceAddress   *string         `gorm:"column:source_address;type:text"`
	RawPayload      json.RawMessage `gorm:"column:raw_payload;type:jsonb;not null"`
	NormalizedJSON  json.RawMessage `gorm:"column:normalized_json;type:jsonb"`
	ConfidenceScore *float64        `gorm:"column:confidence_score;type:double precision"`
	AdminNotes      *string         `gorm:"column:admin_notes;type:text"`
	CreatedAt       time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (PendingShow) TableName() string { return "shows.pending_shows" }

// Show maps shows.shows, the canonical approved catalog.
type Show struct {
	ShowID      int64      `gorm:"column:show_id;primaryKey;autoIncrement"`
	ShowUUID    string     `gorm:"column:show_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Status      string     `gorm:"column:status;type:text;not null;default:ACTIVE"`
	Name        string     `gorm:"column:name;type:text;not null"`
	StartDate   *time.Time `gorm:"column:start_date;type:date"`
	EndDate     *time.Time `gorm:"column:end_date;type:date"`
	VenueName   *string    `gorm:"column:venue_name;type:text"`
	Address     *string    `gorm:"column:address;type:text"`
	City        *string    `gorm:"column:city;type:text"`
	State       *string    `gorm:"column:state;type:text"`
	EntryFee    *float64   `gorm:"column:entry_fee;type:double precision"`
	Description *string    `gorm:"column:description;type:text"`
	URL         *string    `gorm:"column:url;type:text"`
	ContactInfo *string    `gorm:"column:contact_info;type:text"`
	AdminNotes  *string    `gorm:"column:admin_notes;type:text"`
	ApprovedBy  *int64     `gorm:"column:approved_by;type:bigint"`
	CreatedAt   time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Show) TableName() string { return "shows.shows" }

// CrawlRun maps shows.crawl_runs, the batch job log.
type CrawlRun struct {
	RunID          int64      `gorm:"column:run_id;primaryKey;autoIncrement"`
	RunUUID        string     `gorm:"column:run_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Status         string     `gorm:"column:status;type:text;not null;default:running"`
	SourcesSampled int        `gorm:"column:sources_sampled;type:integer;not null;default:0"`
	Processed      int        `gorm:"column:processed;type:integer;not null;default:0"`
	Errors         int        `gorm:"column:errors;type:integer;not null;default:0"`
	ErrorMessage   *string    `gorm:"column:error_message;type:text"`
	StartedAt      time.Time  `gorm:"column:started_at;type:timestamptz;not null;default:now()"`
	FinishedAt     *time.Time `gorm:"column:finished_at;type:timestamptz"`
}

func (CrawlRun) TableName() string { return "shows.crawl_runs" }

// User maps shows.users. Moderation requires is_admin.
type User struct {
	UserID       int64      `gorm:"column:user_id;primaryKey;autoIncrement"`
	Username     string     `gorm:"column:username;type:text;not null;unique"`
	PasswordHash string     `gorm:"column:password_hash;type:text;not null"`
	IsAdmin      bool       `gorm:"column:is_admin;type:boolean;not null;default:false"`
	CreatedAt    time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at;type:timestamptz"`
}

func (User) TableName() string { return "shows.users" }

// Session maps shows.sessions.
type Session struct {
	SessionID  string    `gorm:"column:session_id;type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID     int64     `gorm:"column:user_id;type:bigint;not null"`
	ExpiresAt  time.Time `gorm:"column:expires_at;type:timestamptz;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	LastSeenAt time.Time `gorm:"column:last_seen_at;type:timestamptz;not null;default:now()"`
}

func (Session) TableName() string { return "shows.sessions" }

func autoMigrateModels() []any {
	return []any{
		&PendingShow{},
		&Show{},
		&CrawlRun{},
		&User{},
		&Session{},
	}
}

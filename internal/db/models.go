package db

import (
	"fmt"
	"time"
)

// Seen actions and feedback verdicts are stored as short strings; the
// service layer validates them before they reach the repositories.
const (
	SeenActionInterest = "interest"
	SeenActionPass     = "pass"

	VerdictYes   = "yes"
	VerdictMaybe = "maybe"
	VerdictNo    = "no"
)

// Profile is the identity-bearing user record. Owned fields are mutated by
// the user; LastActiveAt, BoostExpiresAt and CachedMatchCount are touched by
// background processes and reconciled from source-of-truth tables.
type Profile struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	DisplayName  string `gorm:"size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Age          int    `gorm:"not null"`
	Gender       string `gorm:"size:16;not null"`
	InterestedIn string `gorm:"size:64;not null"` // comma-separated gender set
	Bio          string `gorm:"size:1024"`
	PhotoRefs    string `gorm:"size:2048"` // comma-separated, ordered
	IntroVideoRef        *string `gorm:"size:255"`
	VerificationVideoRef *string `gorm:"size:255"`
	Verified     bool   `gorm:"default:false"`
	HeightCM     *int
	Tags         string  `gorm:"size:512"` // comma-separated interest/value tags
	Lat          float64 `gorm:"not null"`
	Lng          float64 `gorm:"not null"`
	LastActiveAt time.Time
	BoostExpiresAt *time.Time

	// Read-optimization cache, rebuilt from the matches table by the
	// reconciler. Never treated as a source of truth.
	CachedMatchCount int `gorm:"default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// BoostActive reports whether the profile holds an unexpired boost.
func (p *Profile) BoostActive(now time.Time) bool {
	return p.BoostExpiresAt != nil && p.BoostExpiresAt.After(now)
}

// InterestEvent is a directional interest edge. The composite PK makes
// re-expressing interest a no-op insert; rows are immutable once created.
type InterestEvent struct {
	FromUserID uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_interest_to_from,priority:2"`
	ToUserID   uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_interest_to_from,priority:1"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// SeenRecord remembers that a user evaluated a candidate. One row per
// (user, candidate); re-evaluation overwrites action and timestamp, which is
// what makes undo possible.
type SeenRecord struct {
	UserID      uint64    `gorm:"primaryKey;autoIncrement:false"`
	CandidateID uint64    `gorm:"primaryKey;autoIncrement:false"`
	Action      string    `gorm:"size:16;not null;index:idx_seen_user_action,priority:2"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// Match is the durable record of mutual interest for an unordered pair.
// PairKey is the normalized "lo:hi" form of the pair and carries the unique
// index that makes concurrent creation safe: the second writer hits the
// constraint, re-reads, and reuses the existing row.
type Match struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	PairKey        string `gorm:"uniqueIndex;size:48;not null"`
	UserAID        uint64 `gorm:"not null;index"` // lower user id of the pair
	UserBID        uint64 `gorm:"not null;index"` // higher user id of the pair
	BothInterested bool   `gorm:"not null;default:true"`
	ChatUnlocked   bool   `gorm:"not null;default:false"` // one-way false -> true
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// PairKeyFor normalizes an unordered pair into its storage key.
func PairKeyFor(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// HasUser reports whether the given user is a member of the match.
func (m *Match) HasUser(userID uint64) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// OtherUserID returns the match partner of userID.
func (m *Match) OtherUserID(userID uint64) uint64 {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// VerityDate is a timed video session tied to a match. ActiveKey holds the
// match id while the date is active and goes NULL on completion; its unique
// index is the storage-level guarantee that at most one active date exists
// per match. RoomReference is set at most once, via conditional update.
// User1 is always the match's UserA side, User2 the UserB side.
type VerityDate struct {
	ID               uint64  `gorm:"primaryKey;autoIncrement"`
	MatchID          uint64  `gorm:"not null;index"`
	ActiveKey        *string `gorm:"uniqueIndex;size:48"`
	ScheduledAt      *time.Time
	RoomReference    *string `gorm:"size:255"`
	SessionStartedAt *time.Time
	Completed        bool    `gorm:"not null;default:false"`
	User1Feedback    *string `gorm:"size:8"`
	User2Feedback    *string `gorm:"size:8"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// SessionElapsed reports whether the fixed session window has run out.
// False while the session has not started.
func (d *VerityDate) SessionElapsed(now time.Time, duration time.Duration) bool {
	return d.SessionStartedAt != nil && !now.Before(d.SessionStartedAt.Add(duration))
}

// Block is a directional visibility edge. Append-only audit data; consulted
// defensively by feed and ledger logic.
type Block struct {
	BlockerID uint64    `gorm:"primaryKey;autoIncrement:false"`
	BlockedID uint64    `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Report is a moderation report record. Append-only; never consumed by this
// core beyond filing.
type Report struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	Reference  string    `gorm:"uniqueIndex;size:40;not null"`
	ReporterID uint64    `gorm:"not null;index"`
	ReportedID uint64    `gorm:"not null"`
	Reason     string    `gorm:"size:512;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// Message is a persistent chat message, only writable once the parent
// match's chat is unlocked. Hard-deleted with the match on unmatch.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	MatchID   uint64    `gorm:"not null;index:idx_message_match_id_id,priority:1"`
	SenderID  uint64    `gorm:"not null"`
	Content   string    `gorm:"size:2048;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

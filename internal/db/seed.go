package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedTags = []string{
	"travel", "food", "music", "fitness", "art", "books", "hiking", "film",
	"coffee", "gaming", "yoga", "photography",
}

// SeedTestData resets the database and populates it with demo profiles and
// interest edges.
//
// Behavior:
//  1. Clears existing data in all tables.
//  2. Creates 20 profiles (10 male, 10 female) scattered around central
//     London, with hashed passwords, tags and heights; a few verified, a
//     couple boosted.
//  3. Generates one-directional interest edges with ~70% like rate, and a
//     guaranteed mutual pair every 3rd iteration.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"messages", "verity_dates", "matches", "interest_events", "seen_records", "blocks", "reports", "profiles"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE profiles AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE matches AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('profiles', 'matches', 'verity_dates', 'messages', 'reports')")
	}

	log.Println("Cleared existing data")

	// --- Seed Profiles (10 male, 10 female) around 51.5074, -0.1278 ---
	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		gender, interestedIn := "male", "female"
		if i > 10 {
			gender, interestedIn = "female", "male"
		}

		height := 150 + r.Intn(50)
		tags := fmt.Sprintf("%s,%s,%s",
			seedTags[r.Intn(len(seedTags))],
			seedTags[r.Intn(len(seedTags))],
			seedTags[r.Intn(len(seedTags))],
		)

		profile := Profile{
			DisplayName:  fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Age:          21 + r.Intn(20),
			Gender:       gender,
			InterestedIn: interestedIn,
			Bio:          "Here for real conversations.",
			PhotoRefs:    fmt.Sprintf("photos/user%d/1.jpg,photos/user%d/2.jpg", i, i),
			Verified:     i%4 == 0,
			HeightCM:     &height,
			Tags:         tags,
			Lat:          51.5074 + (r.Float64()-0.5)*0.2,
			Lng:          -0.1278 + (r.Float64()-0.5)*0.2,
			LastActiveAt: time.Now().Add(-time.Duration(r.Intn(72)) * time.Hour),
		}

		if i%7 == 0 {
			boostUntil := time.Now().Add(6 * time.Hour)
			profile.BoostExpiresAt = &boostUntil
		}

		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
	}
	log.Println("Seeded 20 profiles.")

	// --- Seed interest edges ---
	counter := 0
	for fromID := uint64(1); fromID <= 20; fromID++ {
		for j := 0; j < 8; j++ {
			toID := uint64(r.Intn(20) + 1)
			if fromID == toID {
				continue
			}

			var from, to Profile
			if err := db.First(&from, fromID).Error; err != nil {
				continue
			}
			if err := db.First(&to, toID).Error; err != nil {
				continue
			}
			if from.Gender == to.Gender {
				continue
			}

			liked := r.Intn(100) < 70
			action := SeenActionPass
			if liked {
				action = SeenActionInterest
			}

			seen := SeenRecord{UserID: fromID, CandidateID: toID, Action: action}
			if err := db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "candidate_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"action", "updated_at"}),
			}).Create(&seen).Error; err != nil {
				return fmt.Errorf("failed to seed seen record: %w", err)
			}

			if liked {
				edge := InterestEvent{FromUserID: fromID, ToUserID: toID}
				db.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
			}

			// guarantee a mutual pair every 3rd iteration
			if counter%3 == 0 && liked {
				reverse := InterestEvent{FromUserID: toID, ToUserID: fromID}
				db.Clauses(clause.OnConflict{DoNothing: true}).Create(&reverse)
			}

			counter++
		}
	}

	log.Println("Seeded interest edges.")
	return nil
}

// Package seed fills the database with fake-but-plausible data for
// development and testing.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"gorm.io/gorm"

	"github.com/voxchat/backend/internal/composer"
	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/models"
	"github.com/voxchat/backend/internal/stream"
)

// Seeder handles database seeding operations
type Seeder struct {
	db           *gorm.DB
	streamClient *stream.Client
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// SetStreamClient enables upserting seeded users into Stream chat
func (s *Seeder) SetStreamClient(sc *stream.Client) {
	s.streamClient = sc
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	logger.Log.Info("Creating users...")
	users, err := s.seedUsers(50)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("Creating message drafts...")
	if err := s.seedDrafts(users, 120); err != nil {
		return fmt.Errorf("failed to seed drafts: %w", err)
	}

	logger.Log.Info("Creating voice notes...")
	if err := s.seedVoiceNotes(users, 80); err != nil {
		return fmt.Errorf("failed to seed voice notes: %w", err)
	}

	logger.Log.Info("🌱 Development seed complete")
	return nil
}

// SeedTest seeds a minimal, deterministic dataset for integration tests
func (s *Seeder) SeedTest() error {
	_ = gofakeit.Seed(42)

	users, err := s.seedUsers(5)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	if err := s.seedDrafts(users, 5); err != nil {
		return fmt.Errorf("failed to seed drafts: %w", err)
	}

	logger.Log.Info("🌱 Test seed complete")
	return nil
}

// Clean removes all seeded rows. Seeded accounts are recognizable by their
// email domain.
func (s *Seeder) Clean() error {
	var seeded []models.User
	if err := s.db.Where("email LIKE ?", "%@seed.voxchat.io").Find(&seeded).Error; err != nil {
		return fmt.Errorf("failed to find seed users: %w", err)
	}

	for _, u := range seeded {
		s.db.Where("user_id = ?", u.ID).Delete(&models.MessageDraft{})
		s.db.Where("user_id = ?", u.ID).Delete(&models.VoiceNote{})
		s.db.Unscoped().Delete(&u)
	}

	logger.Log.Info(fmt.Sprintf("🧹 Removed %d seed users and their data", len(seeded)))
	return nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	users := make([]models.User, 0, count)
	taken := make(map[string]bool)

	for i := 0; i < count; i++ {
		username := strings.ToLower(gofakeit.Username())
		for taken[username] {
			username = strings.ToLower(gofakeit.Username())
		}
		taken[username] = true

		user := models.User{
			ID:           gofakeit.UUID(),
			Email:        fmt.Sprintf("%s@seed.voxchat.io", username),
			Username:     username,
			DisplayName:  gofakeit.Name(),
			AvatarURL:    fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
			StreamUserID: "voxchat_seed_" + username,
			IsOnline:     gofakeit.Bool(),
		}
		lastActive := gofakeit.DateRange(time.Now().AddDate(0, 0, -30), time.Now())
		user.LastActiveAt = &lastActive

		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", username, err)
		}

		if s.streamClient != nil {
			if err := s.streamClient.UpsertUser(context.Background(), user.StreamUserID, user.Username); err != nil {
				logger.Log.Warn("Stream upsert failed for seed user " + username)
			}
		}

		users = append(users, user)
	}

	return users, nil
}

func (s *Seeder) seedDrafts(users []models.User, count int) error {
	for i := 0; i < count; i++ {
		user := users[rand.Intn(len(users))]

		draft := models.MessageDraft{
			ID:        gofakeit.UUID(),
			UserID:    user.ID,
			ChannelID: fmt.Sprintf("messaging:%s", gofakeit.UUID()),
			Text:      gofakeit.Sentence(gofakeit.Number(3, 18)),
		}

		// A third of drafts carry staged attachments
		if gofakeit.Number(0, 2) == 0 {
			draft.Attachments = []composer.PendingAttachment{
				{
					ID:        gofakeit.UUID(),
					Kind:      composer.AttachmentImage,
					LocalURL:  gofakeit.URL(),
					Title:     gofakeit.Word() + ".jpg",
					MIMEType:  "image/jpeg",
					SizeBytes: int64(gofakeit.Number(20_000, 4_000_000)),
				},
			}
		}

		if err := s.db.Create(&draft).Error; err != nil {
			return fmt.Errorf("failed to create draft: %w", err)
		}
	}
	return nil
}

func (s *Seeder) seedVoiceNotes(users []models.User, count int) error {
	for i := 0; i < count; i++ {
		user := users[rand.Intn(len(users))]
		durationMS := int64(gofakeit.Number(900, 120_000))

		waveform := make(models.Float64Array, 40)
		for j := range waveform {
			waveform[j] = gofakeit.Float64Range(0, 1)
		}

		note := models.VoiceNote{
			ID:         gofakeit.UUID(),
			UserID:     user.ID,
			ChannelID:  fmt.Sprintf("messaging:%s", gofakeit.UUID()),
			MessageID:  gofakeit.UUID(),
			URL:        fmt.Sprintf("https://cdn.voxchat.io/voice/%s.wav", gofakeit.UUID()),
			MIMEType:   "audio/wav",
			SizeBytes:  durationMS * 88, // ~44.1kHz 16-bit mono
			DurationMS: durationMS,
			Waveform:   waveform,
		}

		if err := s.db.Create(&note).Error; err != nil {
			return fmt.Errorf("failed to create voice note: %w", err)
		}
	}
	return nil
}

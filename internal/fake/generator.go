// Package fake provides a local SA-MP responder and random server history
// for testing and development.
package fake

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/samplauncher/internal/models"
	"github.com/woozymasta/samplauncher/internal/storage"
)

// GenerateData populates the storage with count randomized server records.
func GenerateData(store *storage.Repository, count int) {
	modes := []string{"Freeroam", "DM", "TDM", "Roleplay", "Race", "Stunt", "Drift"}
	languages := []string{"English", "Russian", "German", "Spanish", "Portuguese", "Polish"}
	countries := []string{"US", "DE", "RU", "BR", "PL", "UA", "ES", "FR", "NL", "TR"}
	tags := []string{"RP", "DM", "Freeroam", "0.3.7", "Open.MP"}

	for i := 0; i < count; i++ {
		// last seen within 30 days
		seen := time.Now().
			Add(-time.Duration(rand.Intn(30)) * 24 * time.Hour).
			Add(-time.Duration(rand.Intn(1440)) * time.Minute)

		maxPlayers := []int{50, 100, 200, 500, 1000}[rand.Intn(5)]

		info := models.ServerInfo{
			Hostname:      fmt.Sprintf("SA-MP Server #%d [%s]", rand.Intn(1000), tags[rand.Intn(len(tags))]),
			IP:            fmt.Sprintf("%d.%d.%d.%d", rand.Intn(220)+1, rand.Intn(255), rand.Intn(255), rand.Intn(255)),
			Port:          7777 + rand.Intn(20),
			GameMode:      modes[rand.Intn(len(modes))],
			Language:      languages[rand.Intn(len(languages))],
			PlayersOnline: rand.Intn(maxPlayers + 1),
			MaxPlayers:    maxPlayers,
			IsPassworded:  rand.Float32() < 0.1,
		}

		record := models.NewServerRecord(info, countries[rand.Intn(len(countries))], seen)
		record.FirstSeen = seen.Add(-7 * 24 * time.Hour)

		if err := store.UpsertServer(record); err != nil {
			log.Warn().Err(err).Msg("Failed to generate fake server")
		}

		// 30% chance of repeated queries
		if rand.Float32() < 0.3 {
			_ = store.UpsertServer(record)
		}
	}

	log.Info().Int("count", count).Msg("Fake servers generated")
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"coparentcal/internal/config"
	"coparentcal/internal/custody"
	"coparentcal/internal/model"
	"coparentcal/internal/roster"
	"coparentcal/internal/storage"
)

// demoFamilyID is fixed so reseeding updates the same family record.
var demoFamilyID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("coparentcal-demo-family"))

// seed writes a demo family with a 2-2-3 rotation, a few events, and a
// pending change request. Parents come from the configured vCard roster
// when one is set, otherwise built-in placeholders are used.
func seed(ctx context.Context, store *storage.Store, cfg *config.Config) error {
	parents := [2]model.Parent{
		{ID: uuid.NewSHA1(uuid.NameSpaceOID, []byte("demo-parent-a")), Name: "Alex"},
		{ID: uuid.NewSHA1(uuid.NameSpaceOID, []byte("demo-parent-b")), Name: "Blake"},
	}
	if cfg.RosterPath != "" {
		imported, err := loadRoster(ctx, cfg.RosterPath)
		if err != nil {
			return err
		}
		if len(imported) < 2 {
			return fmt.Errorf("%s: need at least 2 cards, got %d", config.ErrRosterParse, len(imported))
		}
		parents[0], parents[1] = imported[0], imported[1]
	}

	// Anchor on the most recent Monday so the demo rotation lines up
	// with the current week.
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	anchor := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))

	fam := model.Family{
		ID:      demoFamilyID,
		Name:    "Demo Family",
		Parents: parents,
		Children: []model.Child{
			{
				ID:        uuid.NewSHA1(uuid.NameSpaceOID, []byte("demo-child")),
				Name:      "Casey",
				BirthDate: time.Date(2018, time.June, 4, 0, 0, 0, 0, time.UTC),
			},
		},
		AnchorDate: anchor,
		Schedule: custody.Schedule{
			Blocks: []custody.Block{
				{Owner: 0, Days: 2}, {Owner: 1, Days: 2}, {Owner: 0, Days: 3},
				{Owner: 1, Days: 2}, {Owner: 0, Days: 2}, {Owner: 1, Days: 3},
			},
			TransitionHour:   17,
			ExchangeLocation: "school parking lot",
		},
	}
	if err := store.SaveFamily(ctx, fam); err != nil {
		return err
	}

	events := []model.Event{
		{
			ID:        uuid.New(),
			FamilyID:  fam.ID,
			Title:     "Dentist appointment",
			Category:  model.CategoryMedical,
			Start:     today.AddDate(0, 0, 3).Add(14 * time.Hour),
			End:       today.AddDate(0, 0, 3).Add(15 * time.Hour),
			Location:  "Main St clinic",
			CreatedBy: parents[0].ID,
			Confirmed: true,
		},
		{
			ID:        uuid.New(),
			FamilyID:  fam.ID,
			Title:     "Soccer practice",
			Category:  model.CategoryActivity,
			Start:     today.AddDate(0, 0, 1).Add(16 * time.Hour),
			End:       today.AddDate(0, 0, 1).Add(17 * time.Hour),
			CreatedBy: parents[1].ID,
			Confirmed: true,
			RRule:     "FREQ=WEEKLY",
		},
		{
			ID:        uuid.New(),
			FamilyID:  fam.ID,
			Title:     "Spring break",
			Category:  model.CategoryHoliday,
			Start:     today.AddDate(0, 0, 21),
			End:       today.AddDate(0, 0, 26),
			AllDay:    true,
			CreatedBy: parents[0].ID,
			Confirmed: true,
		},
	}
	for _, ev := range events {
		if err := store.InsertEvent(ctx, ev); err != nil {
			return err
		}
	}

	request := model.ChangeRequest{
		ID:            uuid.New(),
		FamilyID:      fam.ID,
		RequestedBy:   parents[1].ID,
		GivingUpStart: today.AddDate(0, 0, 7),
		GivingUpEnd:   today.AddDate(0, 0, 9),
		ProposedStart: today.AddDate(0, 0, 14),
		ProposedEnd:   today.AddDate(0, 0, 16),
		Status:        model.StatusPending,
		CreatedAt:     now,
	}
	if err := store.InsertChangeRequest(ctx, request); err != nil {
		return err
	}

	slog.Info(config.MsgSeedDone,
		config.LogKeyComponent, config.CompMain,
		config.LogKeyFamily, fam.ID.String(),
		config.LogKeyCount, len(events),
	)
	return nil
}

// loadRoster reads parent cards from a local .vcf path or an http(s)
// URL.
func loadRoster(ctx context.Context, path string) ([]model.Parent, error) {
	if strings.HasPrefix(path, config.SchemeHTTP+"://") || strings.HasPrefix(path, config.SchemeHTTPS+"://") {
		body, err := roster.NewHTTPFetcher().Fetch(ctx, path, "", "")
		if err != nil {
			return nil, err
		}
		defer func() { _ = body.Close() }()
		return roster.Load(body)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return roster.Load(f)
}

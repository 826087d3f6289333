package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/campaign-mailer/internal/model"
	"github.com/nimasrn/campaign-mailer/pkg/pg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testDB struct {
	*pg.DB
	rawDB *gorm.DB
}

// setupTestDB opens a private in-memory database. The single connection keeps
// every statement, transactions included, on the same sqlite handle.
func setupTestDB(t *testing.T) *testDB {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), pg.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(Entities()...))

	return &testDB{
		DB:    pg.New(db, db),
		rawDB: db,
	}
}

var testNow = time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)

func seedCampaign(t *testing.T, db *testDB, name string) *CampaignEntity {
	c := &CampaignEntity{
		Name:      name,
		StartDate: model.NewDate(2026, 1, 1),
		EndDate:   model.NewDate(2026, 1, 5),
		Status:    string(model.CampaignStatusDraft),
	}
	require.NoError(t, db.rawDB.Create(c).Error)
	return c
}

func seedTemplate(t *testing.T, db *testDB, name string) *TemplateEntity {
	tpl := &TemplateEntity{Name: name, Subject: "Hi {{name}}", BodyTemplate: "<p>Hello</p>"}
	require.NoError(t, db.rawDB.Create(tpl).Error)
	return tpl
}

func seedClients(t *testing.T, db *testDB, campaignID int64, n int) []*ClientEntity {
	if n == 0 {
		return nil
	}
	clients := make([]*ClientEntity, n)
	for i := range clients {
		clients[i] = &ClientEntity{
			CampaignID: campaignID,
			CSVRow:     i + 1,
			Name:       "client " + string(rune('A'+i)),
			Email:      "client" + string(rune('a'+i)) + "@example.com",
		}
	}
	require.NoError(t, db.rawDB.Create(&clients).Error)
	return clients
}

func seedSchedule(t *testing.T, db *testDB, campaignID, templateID int64, date model.Date, start, end int) *ScheduleEntity {
	s := &ScheduleEntity{
		CampaignID:   campaignID,
		ScheduleDate: date,
		TemplateID:   templateID,
		StartRow:     start,
		EndRow:       end,
		Status:       string(model.ScheduleStatusPending),
	}
	require.NoError(t, db.rawDB.Create(s).Error)
	return s
}

func seedQueue(t *testing.T, db *testDB, s *ScheduleEntity, client *ClientEntity, status model.QueueStatus, retries int) *QueueEntity {
	q := &QueueEntity{
		CampaignID:  s.CampaignID,
		ScheduleID:  s.ID,
		ClientID:    client.ID,
		TemplateID:  s.TemplateID,
		ClientName:  client.Name,
		ClientEmail: client.Email,
		Subject:     "Hi",
		BodyHTML:    "<p>Hello</p>",
		BodyText:    "Hello",
		Status:      string(status),
		ScheduledAt: s.ScheduleDate.StartOfDay(time.UTC),
		RetryCount:  retries,
		MaxRetries:  model.DefaultMaxRetries,
	}
	require.NoError(t, db.rawDB.Create(q).Error)
	return q
}

func ctxBg() context.Context { return context.Background() }

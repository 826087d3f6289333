package fixtures

import (
	"fmt"
	"strings"
	"time"

	"github.com/nimasrn/campaign-mailer/internal/model"
)

var WelcomeTemplate = model.TemplateRequest{
	Name:         "welcome",
	Subject:      "Welcome {{name}}",
	BodyTemplate: "<h1>Hello {{name}}</h1><p>Thanks for joining.</p>",
}

// Campaign returns a create request whose window starts today in UTC.
func Campaign(name string, days int) model.CampaignCreateRequest {
	today := model.Today(time.UTC)
	return model.CampaignCreateRequest{
		Name:      name,
		StartDate: today,
		EndDate:   today.AddDays(days - 1),
	}
}

// Roster builds a CSV roster with n clients named client1..clientN.
func Roster(n int) string {
	var b strings.Builder
	b.WriteString("name,email\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "client%d,client%d@example.com\n", i, i)
	}
	return b.String()
}

func Schedule(campaignID, templateID int64, date model.Date, start, end int) model.ScheduleCreateRequest {
	return model.ScheduleCreateRequest{
		CampaignID:   campaignID,
		ScheduleDate: date,
		TemplateID:   templateID,
		StartRow:     start,
		EndRow:       end,
	}
}

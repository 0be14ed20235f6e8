package usecase

import (
	"context"
	"sort"

	inboxdomain "homeops-backend/internal/inbox/domain"
	inboxusecase "homeops-backend/internal/inbox/usecase"
	taskdomain "homeops-backend/internal/task/domain"
	"homeops-backend/pkg/scoring"

	"github.com/rs/zerolog"
)

// Severity levels of the displayed inbox.
const (
	SeverityCalm     = "calm"
	SeverityModerate = "moderate"
	SeverityHeavy    = "heavy"
)

const topEmails = 5

// InboxSource is the part of the inbox usecase the dashboard reads.
type InboxSource interface {
	GetCalibration(ctx context.Context, userID string) (*inboxusecase.Calibration, error)
	Scorer() *scoring.Scorer
}

type TaskCounter interface {
	CountByStatus(userID string) (map[taskdomain.TaskStatus]int64, error)
}

// DashboardUsecase summarizes a user's inbox load.
type DashboardUsecase interface {
	GetOverview(ctx context.Context, userID string) (*Overview, error)
}

type Overview struct {
	Total       int                             `json:"total"`
	Displayed   int                             `json:"displayed"`
	Filtered    int                             `json:"filtered"`
	AverageLoad int                             `json:"average_mental_load"`
	PeakLoad    int                             `json:"peak_mental_load"`
	Severity    string                          `json:"severity"`
	Threshold   int                             `json:"threshold"`
	RuleVersion string                          `json:"rule_version"`
	Categories  []CategorySummary               `json:"categories"`
	TopEmails   []*inboxdomain.ScoredEmail      `json:"top_emails"`
	Tasks       map[taskdomain.TaskStatus]int64 `json:"tasks,omitempty"`
	LastSync    *inboxdomain.SyncState          `json:"last_sync,omitempty"`
}

type CategorySummary struct {
	Category    string `json:"category"`
	Icon        string `json:"icon"`
	Count       int    `json:"count"`
	Displayed   int    `json:"displayed"`
	AverageLoad int    `json:"average_mental_load"`
}

type dashboardUsecase struct {
	inbox InboxSource
	tasks TaskCounter
	log   zerolog.Logger
}

// NewDashboardUsecase builds the dashboard. tasks may be nil.
func NewDashboardUsecase(inbox InboxSource, tasks TaskCounter, log zerolog.Logger) DashboardUsecase {
	return &dashboardUsecase{inbox: inbox, tasks: tasks, log: log}
}

func (u *dashboardUsecase) GetOverview(ctx context.Context, userID string) (*Overview, error) {
	cal, err := u.inbox.GetCalibration(ctx, userID)
	if err != nil {
		return nil, err
	}

	overview := summarize(cal.Emails, u.inbox.Scorer())
	overview.Threshold = cal.Threshold
	overview.RuleVersion = cal.RuleVersion
	overview.LastSync = cal.LastSync

	if u.tasks != nil {
		counts, err := u.tasks.CountByStatus(userID)
		if err != nil {
			// the overview is still useful without task counts
			u.log.Warn().Err(err).Str("user_id", userID).Msg("failed to count tasks")
		} else {
			overview.Tasks = counts
		}
	}
	return overview, nil
}

// summarize builds the overview from stored verdicts. Load figures cover
// displayed emails only, since filtered mail is not in front of the user.
func summarize(emails []*inboxdomain.ScoredEmail, scorer *scoring.Scorer) *Overview {
	o := &Overview{
		Total:      len(emails),
		Categories: []CategorySummary{},
		TopEmails:  []*inboxdomain.ScoredEmail{},
	}

	type acc struct {
		count, displayed, load int
	}
	byCategory := make(map[string]*acc)
	var order []string
	var loadSum int
	var shown []*inboxdomain.ScoredEmail

	for _, e := range emails {
		a, ok := byCategory[e.Category]
		if !ok {
			a = &acc{}
			byCategory[e.Category] = a
			order = append(order, e.Category)
		}
		a.count++
		a.load += e.MentalLoadScore

		if !e.ShouldDisplay {
			continue
		}
		a.displayed++
		loadSum += e.MentalLoadScore
		o.PeakLoad = max(o.PeakLoad, e.MentalLoadScore)
		shown = append(shown, e)
	}

	o.Displayed = len(shown)
	o.Filtered = o.Total - o.Displayed
	if o.Displayed > 0 {
		o.AverageLoad = roundDiv(loadSum, o.Displayed)
	}
	o.Severity = SeverityFor(o.AverageLoad)

	for _, c := range order {
		a := byCategory[c]
		icon := ""
		if scorer != nil {
			icon = scorer.Icon(c, "", "")
		}
		o.Categories = append(o.Categories, CategorySummary{
			Category:    c,
			Icon:        icon,
			Count:       a.count,
			Displayed:   a.displayed,
			AverageLoad: roundDiv(a.load, a.count),
		})
	}
	sort.SliceStable(o.Categories, func(i, j int) bool {
		if o.Categories[i].AverageLoad != o.Categories[j].AverageLoad {
			return o.Categories[i].AverageLoad > o.Categories[j].AverageLoad
		}
		return o.Categories[i].Category < o.Categories[j].Category
	})

	sort.SliceStable(shown, func(i, j int) bool {
		if shown[i].MentalLoadScore != shown[j].MentalLoadScore {
			return shown[i].MentalLoadScore > shown[j].MentalLoadScore
		}
		return shown[i].ReceivedAt.After(shown[j].ReceivedAt)
	})
	if len(shown) > topEmails {
		shown = shown[:topEmails]
	}
	o.TopEmails = append(o.TopEmails, shown...)
	return o
}

// SeverityFor buckets an average mental load.
func SeverityFor(load int) string {
	switch {
	case load >= 70:
		return SeverityHeavy
	case load >= 40:
		return SeverityModerate
	default:
		return SeverityCalm
	}
}

func roundDiv(sum, n int) int {
	return (sum + n/2) / n
}

package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const categorizeSystem = `You label household email for a family organizer app.`

func categorizePrompt(emailText string) string {
	return fmt.Sprintf(`Classify the email below.

Return ONLY a JSON object: {"category": "<one of %s>", "priority": "<high|medium|low>"}
- high: needs action within 24 hours, health, money owed, a child's deadline
- medium: needs action this week
- low: informational

EMAIL:
%s

JSON OUTPUT:`, strings.Join(Categories, ", "), emailText)
}

const taskSystem = `You extract actionable tasks from household email.`

func taskPrompt(now time.Time, emailText string) string {
	return fmt.Sprintf(`TODAY: %s

Find every task, deadline, appointment or reminder in the email below.
Return ONLY a JSON array. Each item: {"title": "...", "description": "...", "due_date": "ISO 8601 or empty", "priority": "high|medium|low"}.
Return [] when there is nothing to do.

EMAIL:
%s

JSON OUTPUT:`, now.Format("2006-01-02"), emailText)
}

// stripFences removes a surrounding markdown code block.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

// between returns the outermost open..closing span of text, or text itself.
func between(text, open, closing string) string {
	start := strings.Index(text, open)
	end := strings.LastIndex(text, closing)
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

func parseCategorization(response string) (*Categorization, error) {
	text := between(stripFences(response), "{", "}")

	var raw Categorization
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse categorization JSON: %w", err)
	}

	out := &Categorization{
		Category: normalizeCategory(raw.Category),
		Priority: normalizePriority(raw.Priority),
	}
	return out, nil
}

func normalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return "general"
}

func normalizePriority(priority string) string {
	switch p := strings.ToLower(strings.TrimSpace(priority)); p {
	case "high", "medium", "low":
		return p
	case "urgent":
		return "high"
	default:
		return "medium"
	}
}

func parseTasks(response string, now time.Time) ([]TaskExtraction, error) {
	text := between(stripFences(response), "[", "]")

	var rawTasks []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		DueDate     string `json:"due_date"`
		Priority    string `json:"priority"`
	}
	if err := json.Unmarshal([]byte(text), &rawTasks); err != nil {
		return nil, fmt.Errorf("failed to parse task JSON: %w", err)
	}

	var tasks []TaskExtraction
	for _, rt := range rawTasks {
		if strings.TrimSpace(rt.Title) == "" {
			continue
		}
		task := TaskExtraction{
			Title:       strings.TrimSpace(rt.Title),
			Description: rt.Description,
			Priority:    normalizePriority(rt.Priority),
			DueDate:     parseDueDate(rt.DueDate, now),
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

var dueDateFormats = []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02T15:04:05", "2006-01-02"}

func parseDueDate(value string, now time.Time) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, format := range dueDateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return &t
		}
	}
	return parseRelativeDate(value, now)
}

var (
	tomorrowRe = regexp.MustCompile(`\btomorrow\b`)
	nextWeekRe = regexp.MustCompile(`\bnext week\b`)
)

// parseRelativeDate attempts to parse relative date expressions
func parseRelativeDate(dateStr string, now time.Time) *time.Time {
	dateStr = strings.ToLower(dateStr)

	if tomorrowRe.MatchString(dateStr) {
		t := now.AddDate(0, 0, 1)
		return &t
	}
	if nextWeekRe.MatchString(dateStr) {
		t := now.AddDate(0, 0, 7)
		return &t
	}
	return nil
}

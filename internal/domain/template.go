package domain

import (
	"fmt"
	"strings"
	"time"
)

// MessageTemplate is the rendered-content source for a
// (noticeType, channel, language) triple. A missing triple is a hard error,
// never a fallback to a default language.
type MessageTemplate struct {
	ID         string
	Name       string
	NoticeType NoticeType
	Channel    Channel
	Language   string
	Subject    *string
	Body       string
	Variables  []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Render substitutes {{key}} placeholders in the template body.
func (t MessageTemplate) Render(vars map[string]any) string {
	content := t.Body
	for key, value := range vars {
		content = strings.ReplaceAll(content, "{{"+key+"}}", fmt.Sprint(value))
	}
	return content
}

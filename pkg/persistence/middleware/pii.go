package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/coach/pkg/domain"
	"github.com/aretw0/coach/pkg/ports"
)

// Mask replaces every match of a PII pattern.
const Mask = "***"

// DefaultPIIPatterns match e-mail addresses and phone numbers.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
	`\+?\d[\d\s().-]{7,}\d`,
}

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks matches of patterns in the
// learner's text before it is stored: user turns, the stated approach, the
// pseudocode and string values of the problem metadata. The in-memory session
// is never modified.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, sess *domain.Session) error {
	if sess == nil {
		return domain.ErrNilSession
	}
	masked := sess.Clone()
	for i, t := range masked.Conversation {
		if t.Role == domain.RoleUser {
			masked.Conversation[i].Text = m.mask(t.Text)
		}
	}
	if masked.Fields.UserApproach != nil {
		masked.Fields.UserApproach = domain.Ptr(m.mask(*masked.Fields.UserApproach))
	}
	if masked.Fields.Pseudocode != nil {
		masked.Fields.Pseudocode = domain.Ptr(m.mask(*masked.Fields.Pseudocode))
	}
	m.maskMap(masked.ProblemMetadata)

	return m.next.Save(ctx, sessionID, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) mask(text string) string {
	for _, p := range m.patterns {
		text = p.ReplaceAllString(text, Mask)
	}
	return text
}

// maskMap masks string values in place, recursing into nested maps.
// Session.Clone deep-copies nested metadata maps.
func (m *piiMiddleware) maskMap(md map[string]any) {
	for k, v := range md {
		switch val := v.(type) {
		case string:
			md[k] = m.mask(val)
		case map[string]any:
			m.maskMap(val)
		}
	}
}

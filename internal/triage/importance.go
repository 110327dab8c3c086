package triage

import (
	"regexp"
	"strings"
	"time"

	"github.com/autou/mailtriage/internal/models"
)

var urgencyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\burgente?\b`),
	regexp.MustCompile(`\basap\b`),
	regexp.MustCompile(`\bprioridade\b`),
	regexp.MustCompile(`\bp1\b`),
	regexp.MustCompile(`\bprazo\b`),
	regexp.MustCompile(`\bhoje\b`),
	regexp.MustCompile(`\bamanha\b`),
	regexp.MustCompile(`\bdeadline\b`),
	regexp.MustCompile(`\bultimo\s*dia\b`),
	regexp.MustCompile(`\batrasad[ao]\b`),
}

var relevantAttachment = regexp.MustCompile(`comprovante|contrato|boleto|nf|nota\s*fiscal|documento`)

// ImportanceInput is the metadata the scorer looks at beyond the cleaned text.
type ImportanceInput struct {
	Subject         string
	FromEmail       string
	AttachmentNames []string
	ReceivedAt      *time.Time
}

// Importance is a 0-100 score with a coarse label and the reasons that
// contributed to it.
type Importance struct {
	Score   int      `json:"score"`
	Label   string   `json:"label"`
	Reasons []string `json:"reasons"`
}

// Scorer ranks emails by urgency signals, sender reputation and freshness.
type Scorer struct {
	vipSenders map[string]struct{}
	vipDomains map[string]struct{}
	now        func() time.Time
}

// NewScorer builds a scorer with the configured VIP sender addresses and
// domains. Both lists are matched case-insensitively.
func NewScorer(vipSenders, vipDomains []string) *Scorer {
	return &Scorer{
		vipSenders: lowerSet(vipSenders),
		vipDomains: lowerSet(vipDomains),
		now:        time.Now,
	}
}

// Score computes the importance of one email. The weights favour VIP
// senders, explicit urgency language and recent arrival; stale mail loses
// points.
func (s *Scorer) Score(in ImportanceInput, text, category string) Importance {
	score := 0
	var reasons []string

	folded := Fold(text)
	subject := Fold(in.Subject)
	sender := strings.ToLower(strings.TrimSpace(in.FromEmail))

	if _, ok := s.vipSenders[sender]; ok {
		score += 40
		reasons = append(reasons, "vip_sender")
	}
	if _, domain, ok := strings.Cut(sender, "@"); ok {
		if _, vip := s.vipDomains[domain]; vip {
			score += 20
			reasons = append(reasons, "vip_domain")
		}
	}

	urgencyHits := 0
	for _, p := range urgencyPatterns {
		if p.MatchString(folded) || p.MatchString(subject) {
			urgencyHits++
		}
	}
	if urgencyHits > 0 {
		if urgencyHits > 3 {
			urgencyHits = 3
		}
		score += 20 + 5*urgencyHits
		reasons = append(reasons, "urgency_keywords")
	}

	if category == CategoryProductive {
		score += 10
		reasons = append(reasons, "productive")
	}

	if relevantAttachment.MatchString(Fold(strings.Join(in.AttachmentNames, " "))) {
		score += 10
		reasons = append(reasons, "relevant_attachment")
	}

	if in.ReceivedAt != nil {
		age := s.now().Sub(*in.ReceivedAt)
		switch {
		case age <= 2*time.Hour:
			score += 15
			reasons = append(reasons, "very_recent")
		case age <= 24*time.Hour:
			score += 8
			reasons = append(reasons, "recent")
		case age > 72*time.Hour:
			score -= 5
			reasons = append(reasons, "old")
		}

		if hour := in.ReceivedAt.UTC().Hour(); hour >= 11 && hour <= 22 {
			score += 8
			reasons = append(reasons, "business_hours")
		} else {
			score -= 4
			reasons = append(reasons, "off_hours")
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	if len(reasons) > 8 {
		reasons = reasons[:8]
	}

	return Importance{Score: score, Label: importanceLabel(score), Reasons: reasons}
}

func importanceLabel(score int) string {
	switch {
	case score >= 80:
		return models.ImportanceUrgent
	case score >= 50:
		return models.ImportanceHigh
	case score >= 25:
		return models.ImportanceNormal
	default:
		return models.ImportanceLow
	}
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

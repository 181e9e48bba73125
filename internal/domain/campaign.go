package domain

import "time"

// CampaignStatus is the normalized status vocabulary every vendor status maps
// into. Unmapped vendor values normalize to StatusUnknown, never to an error.
type CampaignStatus string

const (
	StatusDraft     CampaignStatus = "DRAFT"
	StatusScheduled CampaignStatus = "SCHEDULED"
	StatusSending   CampaignStatus = "SENDING"
	StatusSent      CampaignStatus = "SENT"
	StatusCancelled CampaignStatus = "CANCELLED"
	StatusArchived  CampaignStatus = "ARCHIVED"
	StatusUnknown   CampaignStatus = "UNKNOWN"
)

// Campaign is a mirror row for one vendor campaign, uniquely identified by
// (ClientID, ExternalID). ExternalID is the vendor's native campaign key and
// is unique only within a client's scope.
type Campaign struct {
	ID          string         `json:"id" db:"id"`
	ClientID    string         `json:"client_id" db:"client_id"`
	ExternalID  string         `json:"external_id" db:"external_id"`
	Name        string         `json:"name" db:"name"`
	Subject     string         `json:"subject" db:"subject"`
	FromName    string         `json:"from_name" db:"from_name"`
	FromEmail   string         `json:"from_email" db:"from_email"`
	PreviewText string         `json:"preview_text" db:"preview_text"`
	Status      CampaignStatus `json:"status" db:"status"`
	ScheduledAt *time.Time     `json:"scheduled_at" db:"scheduled_at"`
	SentAt      *time.Time     `json:"sent_at" db:"sent_at"`
	Metrics     Metrics        `json:"metrics"`

	// Metadata holds vendor fields with no normalized home.
	Metadata map[string]interface{} `json:"metadata"`

	SyncedAt  time.Time `json:"synced_at" db:"synced_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Metrics is the normalized performance snapshot for a campaign.
// Counts come from vendor counters; rates are always recomputed locally.
type Metrics struct {
	Sent         int `json:"sent" db:"sent"`
	Delivered    int `json:"delivered" db:"delivered"`
	Opens        int `json:"opens" db:"opens"`
	UniqueOpens  int `json:"unique_opens" db:"unique_opens"`
	Clicks       int `json:"clicks" db:"clicks"`
	UniqueClicks int `json:"unique_clicks" db:"unique_clicks"`
	Bounces      int `json:"bounces" db:"bounces"`
	Unsubscribes int `json:"unsubscribes" db:"unsubscribes"`
	Complaints   int `json:"complaints" db:"complaints"`

	OpenRate        float64 `json:"open_rate" db:"open_rate"`
	ClickRate       float64 `json:"click_rate" db:"click_rate"`
	BounceRate      float64 `json:"bounce_rate" db:"bounce_rate"`
	UnsubscribeRate float64 `json:"unsubscribe_rate" db:"unsubscribe_rate"`
	ComplaintRate   float64 `json:"complaint_rate" db:"complaint_rate"`
}

// ComputeDerived fills Delivered when the vendor omits it and recomputes all
// rates. Rates are 0 when Sent is 0, never NaN.
func (m *Metrics) ComputeDerived() {
	if m.Delivered == 0 && m.Sent > 0 {
		m.Delivered = m.Sent - m.Bounces
		if m.Delivered < 0 {
			m.Delivered = 0
		}
	}
	m.OpenRate = safeRate(m.Opens, m.Sent)
	m.ClickRate = safeRate(m.Clicks, m.Sent)
	m.BounceRate = safeRate(m.Bounces, m.Sent)
	m.UnsubscribeRate = safeRate(m.Unsubscribes, m.Sent)
	m.ComplaintRate = safeRate(m.Complaints, m.Sent)
}

func safeRate(count, sent int) float64 {
	if sent == 0 {
		return 0
	}
	return float64(count) / float64(sent)
}

// AudienceList is a mirror row for one vendor audience list, keyed by
// (ClientID, ExternalID).
type AudienceList struct {
	ID               string    `json:"id" db:"id"`
	ClientID         string    `json:"client_id" db:"client_id"`
	ExternalID       string    `json:"external_id" db:"external_id"`
	Name             string    `json:"name" db:"name"`
	MemberCount      int       `json:"member_count" db:"member_count"`
	UnsubscribeCount int       `json:"unsubscribe_count" db:"unsubscribe_count"`
	CleanedCount     int       `json:"cleaned_count" db:"cleaned_count"`
	AvgOpenRate      float64   `json:"avg_open_rate" db:"avg_open_rate"`
	AvgClickRate     float64   `json:"avg_click_rate" db:"avg_click_rate"`
	SyncedAt         time.Time `json:"synced_at" db:"synced_at"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

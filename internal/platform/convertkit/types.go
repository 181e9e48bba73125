package convertkit

type broadcast struct {
	ID           int64  `json:"id"`
	CreatedAt    string `json:"created_at"`
	Subject      string `json:"subject"`
	Description  string `json:"description"`
	Content      string `json:"content"`
	Public       bool   `json:"public"`
	PublishedAt  string `json:"published_at"`
	SendAt       string `json:"send_at"`
	EmailAddress string `json:"email_address"`
}

type broadcastEnvelope struct {
	Broadcast broadcast `json:"broadcast"`
}

type broadcastListEnvelope struct {
	Broadcasts []broadcast `json:"broadcasts"`
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
}

type broadcastWrite struct {
	Subject      string `json:"subject,omitempty"`
	Description  string `json:"description,omitempty"`
	Content      string `json:"content,omitempty"`
	Public       *bool  `json:"public,omitempty"`
	SendAt       string `json:"send_at,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
}

// broadcastStats carries ConvertKit's precomputed percentages; counts are
// derived from them against the recipient total.
type broadcastStats struct {
	Recipients   int     `json:"recipients"`
	OpenRate     float64 `json:"open_rate"`
	ClickRate    float64 `json:"click_rate"`
	Unsubscribes int     `json:"unsubscribes"`
	TotalClicks  int     `json:"total_clicks"`
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
}

type broadcastStatsEnvelope struct {
	Broadcast struct {
		ID    int64          `json:"id"`
		Stats broadcastStats `json:"stats"`
	} `json:"broadcast"`
}

type form struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Type               string `json:"type"`
	TotalSubscriptions int    `json:"total_subscriptions"`
}

type formListEnvelope struct {
	Forms []form `json:"forms"`
}

type formEnvelope struct {
	Form form `json:"form"`
}

type accountEnvelope struct {
	Name                string `json:"name"`
	PrimaryEmailAddress string `json:"primary_email_address"`
}

package sendgrid

// singleSend is SendGrid's marketing single-send object.
type singleSend struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Status       string             `json:"status"`
	Categories   []string           `json:"categories"`
	SendAt       string             `json:"send_at"`
	UpdatedAt    string             `json:"updated_at"`
	EmailConfig  singleSendConfig   `json:"email_config"`
	SendTo       singleSendAudience `json:"send_to"`
}

type singleSendConfig struct {
	Subject      string `json:"subject"`
	HTMLContent  string `json:"html_content"`
	PlainContent string `json:"plain_content"`
	SenderID     int    `json:"sender_id"`
}

type singleSendAudience struct {
	ListIDs []string `json:"list_ids"`
}

type singleSendPage struct {
	Result   []singleSend `json:"result"`
	Metadata pageMetadata `json:"_metadata"`
}

type pageMetadata struct {
	Prev  string `json:"prev"`
	Self  string `json:"self"`
	Next  string `json:"next"`
	Count int    `json:"count"`
}

type singleSendWrite struct {
	Name        string            `json:"name"`
	SendAt      string            `json:"send_at,omitempty"`
	EmailConfig *singleSendConfig `json:"email_config,omitempty"`
	SendTo      *singleSendAudience `json:"send_to,omitempty"`
}

type scheduleWrite struct {
	SendAt string `json:"send_at"`
}

// singleSendStats is SendGrid's per-single-send stats row. SendGrid reports
// delivered and bounces but no "sent" counter; sent is derived locally.
type singleSendStats struct {
	Results []statsResult `json:"results"`
}

type statsResult struct {
	ID    string     `json:"id"`
	Stats statsBlock `json:"stats"`
}

type statsBlock struct {
	Delivered    int `json:"delivered"`
	Opens        int `json:"opens"`
	UniqueOpens  int `json:"unique_opens"`
	Clicks       int `json:"clicks"`
	UniqueClicks int `json:"unique_clicks"`
	Bounces      int `json:"bounces"`
	Unsubscribes int `json:"unsubscribes"`
	SpamReports  int `json:"spam_reports"`
}

type contactList struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContactCount int    `json:"contact_count"`
}

type contactListPage struct {
	Result   []contactList `json:"result"`
	Metadata pageMetadata  `json:"_metadata"`
}

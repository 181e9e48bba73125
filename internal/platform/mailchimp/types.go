package mailchimp

// campaignResponse is Mailchimp's /campaigns object.
type campaignResponse struct {
	ID         string            `json:"id"`
	WebID      int               `json:"web_id"`
	Type       string            `json:"type"`
	Status     string            `json:"status"`
	CreateTime string            `json:"create_time"`
	SendTime   string            `json:"send_time"`
	EmailsSent int               `json:"emails_sent"`
	Settings   campaignSettings  `json:"settings"`
	Recipients campaignAudience  `json:"recipients"`
}

type campaignSettings struct {
	SubjectLine string `json:"subject_line"`
	PreviewText string `json:"preview_text"`
	Title       string `json:"title"`
	FromName    string `json:"from_name"`
	ReplyTo     string `json:"reply_to"`
}

type campaignAudience struct {
	ListID string `json:"list_id"`
}

type campaignListResponse struct {
	Campaigns  []campaignResponse `json:"campaigns"`
	TotalItems int                `json:"total_items"`
}

type createCampaignRequest struct {
	Type       string           `json:"type"`
	Settings   campaignSettings `json:"settings"`
	Recipients *campaignAudience `json:"recipients,omitempty"`
}

type patchCampaignRequest struct {
	Settings map[string]string `json:"settings"`
}

type scheduleRequest struct {
	ScheduleTime string `json:"schedule_time"`
}

type contentRequest struct {
	HTML      string `json:"html,omitempty"`
	PlainText string `json:"plain_text,omitempty"`
}

// reportResponse is Mailchimp's /reports/{id} object.
type reportResponse struct {
	ID         string       `json:"id"`
	EmailsSent int          `json:"emails_sent"`
	Opens      reportOpens  `json:"opens"`
	Clicks     reportClicks `json:"clicks"`
	Bounces    reportBounces `json:"bounces"`
	Unsubscribed int        `json:"unsubscribed"`
	AbuseReports int        `json:"abuse_reports"`
}

type reportOpens struct {
	OpensTotal  int `json:"opens_total"`
	UniqueOpens int `json:"unique_opens"`
}

type reportClicks struct {
	ClicksTotal  int `json:"clicks_total"`
	UniqueClicks int `json:"unique_subscriber_clicks"`
}

type reportBounces struct {
	HardBounces int `json:"hard_bounces"`
	SoftBounces int `json:"soft_bounces"`
}

// listResponse is Mailchimp's /lists object.
type listResponse struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Stats listStats `json:"stats"`
}

type listStats struct {
	MemberCount      int     `json:"member_count"`
	UnsubscribeCount int     `json:"unsubscribe_count"`
	CleanedCount     int     `json:"cleaned_count"`
	OpenRate         float64 `json:"open_rate"`
	ClickRate        float64 `json:"click_rate"`
}

type listsEnvelope struct {
	Lists      []listResponse `json:"lists"`
	TotalItems int            `json:"total_items"`
}

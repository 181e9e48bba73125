package constantcontact

type campaign struct {
	CampaignID    string     `json:"campaign_id"`
	Name          string     `json:"name"`
	CurrentStatus string     `json:"current_status"`
	CreatedAt     string     `json:"created_at"`
	UpdatedAt     string     `json:"updated_at"`
	Activities    []activity `json:"campaign_activities"`
}

type activity struct {
	CampaignActivityID string `json:"campaign_activity_id"`
	Role               string `json:"role"`
	Subject            string `json:"subject"`
	FromName           string `json:"from_name"`
	FromEmail          string `json:"from_email"`
	PreheaderText      string `json:"preheader"`
	HTMLContent        string `json:"html_content"`
	CurrentStatus      string `json:"current_status"`
}

type campaignPage struct {
	Campaigns []campaign `json:"campaigns"`
	Links     pageLinks  `json:"_links"`
}

type pageLinks struct {
	Next *pageLink `json:"next"`
}

type pageLink struct {
	Href string `json:"href"`
}

type campaignCreate struct {
	Name       string          `json:"name"`
	Activities []activityWrite `json:"email_campaign_activities"`
}

type activityWrite struct {
	FormatType  int    `json:"format_type"`
	FromName    string `json:"from_name,omitempty"`
	FromEmail   string `json:"from_email,omitempty"`
	ReplyTo     string `json:"reply_to_email,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Preheader   string `json:"preheader,omitempty"`
	HTMLContent string `json:"html_content,omitempty"`
}

type campaignRename struct {
	Name string `json:"name"`
}

type scheduleWrite struct {
	// "0" means send immediately.
	ScheduledDate string `json:"scheduled_date"`
}

type trackingCounts struct {
	Sends        int `json:"sends"`
	Opens        int `json:"opens"`
	UniqueOpens  int `json:"unique_opens"`
	Clicks       int `json:"clicks"`
	UniqueClicks int `json:"unique_clicks"`
	Bounces      int `json:"bounces"`
	Optouts      int `json:"optouts"`
	Abuse        int `json:"abuse"`
	Forwards     int `json:"forwards"`
}

type contactList struct {
	ListID          string `json:"list_id"`
	Name            string `json:"name"`
	MembershipCount int    `json:"membership_count"`
	Description     string `json:"description"`
}

type listPage struct {
	Lists []contactList `json:"lists"`
	Links pageLinks     `json:"_links"`
}

type accountSummary struct {
	EncodedAccountID string `json:"encoded_account_id"`
	OrganizationName string `json:"organization_name"`
}

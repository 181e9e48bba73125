package brevo

type emailCampaign struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Subject     string           `json:"subject"`
	PreviewText string           `json:"previewText"`
	Status      string           `json:"status"`
	ScheduledAt string           `json:"scheduledAt"`
	SentDate    string           `json:"sentDate"`
	Sender      campaignSender   `json:"sender"`
	Statistics  campaignStats    `json:"statistics"`
	Recipients  campaignLists    `json:"recipients"`
	Type        string           `json:"type"`
}

type campaignSender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type campaignLists struct {
	Lists []int64 `json:"lists"`
}

type campaignStats struct {
	GlobalStats globalStats `json:"globalStats"`
}

type globalStats struct {
	Sent            int `json:"sent"`
	Delivered       int `json:"delivered"`
	Viewed          int `json:"viewed"`
	UniqueViews     int `json:"uniqueViews"`
	Clickers        int `json:"clickers"`
	UniqueClicks    int `json:"uniqueClicks"`
	SoftBounces     int `json:"softBounces"`
	HardBounces     int `json:"hardBounces"`
	Unsubscriptions int `json:"unsubscriptions"`
	Complaints      int `json:"complaints"`
}

type campaignPage struct {
	Campaigns []emailCampaign `json:"campaigns"`
	Count     int             `json:"count"`
}

type campaignWrite struct {
	Name        string          `json:"name,omitempty"`
	Subject     string          `json:"subject,omitempty"`
	PreviewText string          `json:"previewText,omitempty"`
	Sender      *campaignSender `json:"sender,omitempty"`
	HTMLContent string          `json:"htmlContent,omitempty"`
	ScheduledAt string          `json:"scheduledAt,omitempty"`
	Recipients  *writeLists     `json:"recipients,omitempty"`
}

type writeLists struct {
	ListIDs []int64 `json:"listIds"`
}

type createResponse struct {
	ID int64 `json:"id"`
}

type contactList struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	TotalSubscribers  int    `json:"totalSubscribers"`
	TotalBlacklisted  int    `json:"totalBlacklisted"`
	UniqueSubscribers int    `json:"uniqueSubscribers"`
}

type listPage struct {
	Lists []contactList `json:"lists"`
	Count int           `json:"count"`
}

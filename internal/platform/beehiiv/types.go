package beehiiv

type post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Subtitle     string    `json:"subtitle"`
	Status       string    `json:"status"`
	Audience     string    `json:"audience"`
	PublishDate  int64     `json:"publish_date"`
	ScheduledAt  int64     `json:"scheduled_at"`
	CreatedAt    int64     `json:"created"`
	WebURL       string    `json:"web_url"`
	ContentTags  []string  `json:"content_tags"`
	Stats        postStats `json:"stats"`
	EmailSubject string    `json:"email_subject"`
}

type postStats struct {
	Email emailStats `json:"email"`
}

type emailStats struct {
	Recipients   int `json:"recipients"`
	Delivered    int `json:"delivered"`
	Opens        int `json:"opens"`
	UniqueOpens  int `json:"unique_opens"`
	Clicks       int `json:"clicks"`
	UniqueClicks int `json:"unique_clicks"`
	Unsubscribes int `json:"unsubscribes"`
	SpamReports  int `json:"spam_reports"`
}

type postEnvelope struct {
	Data post `json:"data"`
}

type postPage struct {
	Data         []post `json:"data"`
	Page         int    `json:"page"`
	Limit        int    `json:"limit"`
	TotalResults int    `json:"total_results"`
	TotalPages   int    `json:"total_pages"`
}

type postWrite struct {
	Title        string `json:"title,omitempty"`
	Subtitle     string `json:"subtitle,omitempty"`
	EmailSubject string `json:"email_subject,omitempty"`
	BodyContent  string `json:"body_content,omitempty"`
	Status       string `json:"status,omitempty"`
	ScheduledAt  int64  `json:"scheduled_at,omitempty"`
}

type segment struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	TotalResults   int    `json:"total_results"`
	Status         string `json:"status"`
	LastCalculated int64  `json:"last_calculated"`
}

type segmentPage struct {
	Data       []segment `json:"data"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

type publicationEnvelope struct {
	Data struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
}

package klaviyo

// Klaviyo speaks JSON:API: every resource is {type, id, attributes} and
// collections carry cursor links.

type resource struct {
	Type       string             `json:"type"`
	ID         string             `json:"id"`
	Attributes campaignAttributes `json:"attributes"`
}

type campaignAttributes struct {
	Name      string          `json:"name"`
	Status    string          `json:"status"`
	Archived  bool            `json:"archived"`
	SendTime  string          `json:"send_time"`
	CreatedAt string          `json:"created_at"`
	Message   campaignMessage `json:"campaign-messages,omitempty"`
	Audiences campaignAudiences `json:"audiences"`
}

type campaignMessage struct {
	Subject     string `json:"subject"`
	PreviewText string `json:"preview_text"`
	FromEmail   string `json:"from_email"`
	FromLabel   string `json:"from_label"`
}

type campaignAudiences struct {
	Included []string `json:"included"`
	Excluded []string `json:"excluded"`
}

type collectionLinks struct {
	Self string `json:"self"`
	Next string `json:"next"`
	Prev string `json:"prev"`
}

type campaignCollection struct {
	Data  []resource      `json:"data"`
	Links collectionLinks `json:"links"`
}

type campaignSingle struct {
	Data resource `json:"data"`
}

type writeEnvelope struct {
	Data writeResource `json:"data"`
}

type writeResource struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id,omitempty"`
	Attributes map[string]interface{} `json:"attributes"`
}

// valuesReport is the POST /campaign-values-reports response.
type valuesReport struct {
	Data valuesReportData `json:"data"`
}

type valuesReportData struct {
	Attributes valuesReportAttributes `json:"attributes"`
}

type valuesReportAttributes struct {
	Results []valuesResult `json:"results"`
}

type valuesResult struct {
	Statistics valuesStatistics `json:"statistics"`
}

type valuesStatistics struct {
	Recipients     int `json:"recipients"`
	Delivered      int `json:"delivered"`
	Opens          int `json:"opens"`
	OpensUnique    int `json:"opens_unique"`
	Clicks         int `json:"clicks"`
	ClicksUnique   int `json:"clicks_unique"`
	Bounced        int `json:"bounced"`
	Unsubscribes   int `json:"unsubscribes"`
	SpamComplaints int `json:"spam_complaints"`
}

type listResource struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes listAttributes `json:"attributes"`
}

type listAttributes struct {
	Name         string `json:"name"`
	ProfileCount int    `json:"profile_count"`
}

type listCollection struct {
	Data  []listResource  `json:"data"`
	Links collectionLinks `json:"links"`
}

type listSingle struct {
	Data listResource `json:"data"`
}

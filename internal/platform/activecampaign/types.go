package activecampaign

// ActiveCampaign encodes almost every number as a JSON string, statuses
// included. All counters are parsed defensively.

type campaignRecord struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status"` // numeric code as string
	SendAmt          string `json:"send_amt"`
	TotalAmt         string `json:"total_amt"`
	Opens            string `json:"opens"`
	UniqueOpens      string `json:"uniqueopens"`
	LinkClicks       string `json:"linkclicks"`
	UniqueLinkClicks string `json:"uniquelinkclicks"`
	HardBounces      string `json:"hardbounces"`
	SoftBounces      string `json:"softbounces"`
	Unsubscribes     string `json:"unsubscribes"`
	SpamComplaints   string `json:"spam_complaints"`
	SendDate         string `json:"sdate"`
	LastDate         string `json:"ldate"`
	Type             string `json:"type"`
}

type campaignListEnvelope struct {
	Campaigns []campaignRecord `json:"campaigns"`
	Meta      listMeta         `json:"meta"`
}

type campaignSingleEnvelope struct {
	Campaign campaignRecord `json:"campaign"`
}

type listMeta struct {
	Total string `json:"total"` // yes, a string
}

type messageWrite struct {
	Message messageBody `json:"message"`
}

type messageBody struct {
	Subject  string `json:"subject"`
	FromName string `json:"fromname"`
	FromEmail string `json:"fromemail"`
	HTML     string `json:"html"`
	Text     string `json:"text"`
}

type campaignWrite struct {
	Campaign campaignWriteBody `json:"campaign"`
}

type campaignWriteBody struct {
	Name   string `json:"name,omitempty"`
	Type   string `json:"type,omitempty"`
	Status string `json:"status,omitempty"`
	SDate  string `json:"sdate,omitempty"`
	ListID string `json:"p[1],omitempty"`
}

type listRecord struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	SubscriberCount  string `json:"subscriber_count"`
	ActiveSubscribers string `json:"active_subscribers"`
}

type listListEnvelope struct {
	Lists []listRecord `json:"lists"`
	Meta  listMeta     `json:"meta"`
}

type listSingleEnvelope struct {
	List listRecord `json:"list"`
}

package meta

// WebhookPayload is the Graph API webhook envelope. Object names the surface
// ("page" for Facebook, "instagram" for Instagram Business); a single
// delivery can batch events for several pages in Entry.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging,omitempty"`
	Changes   []Change    `json:"changes,omitempty"`
}

// Messaging is one direct-message event. Read receipts and postbacks arrive
// on the same array and must be skipped.
type Messaging struct {
	Sender    Party          `json:"sender"`
	Recipient Party          `json:"recipient"`
	Timestamp int64          `json:"timestamp"`
	Message   *DirectMessage `json:"message,omitempty"`
	Read      map[string]any `json:"read,omitempty"`
	Postback  map[string]any `json:"postback,omitempty"`
}

type Party struct {
	ID string `json:"id"`
}

type DirectMessage struct {
	MID         string       `json:"mid"`
	Text        string       `json:"text,omitempty"`
	IsEcho      bool         `json:"is_echo,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Type    string `json:"type"`
	Payload struct {
		URL string `json:"url,omitempty"`
	} `json:"payload"`
}

// Change carries feed and comment events.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	ID          string      `json:"id,omitempty"`
	CommentID   string      `json:"comment_id,omitempty"`
	Text        string      `json:"text,omitempty"`
	Message     string      `json:"message,omitempty"`
	From        *ChangeFrom `json:"from,omitempty"`
	ParentID    string      `json:"parent_id,omitempty"`
	CreatedTime int64       `json:"created_time,omitempty"`
	Verb        string      `json:"verb,omitempty"`
}

type ChangeFrom struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
}

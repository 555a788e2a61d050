package domain

// PushMessage is a titled notification addressed to one device token.
type PushMessage struct {
	Token *string `json:"token"`
	Title string  `json:"title"`
	Body  string  `json:"body"`
}

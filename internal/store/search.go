package store

// SearchResult is one decision matching a search.
type SearchResult struct {
	DecisionID int64  `json:"decision_id"`
	MeetingID  int64  `json:"meeting_id"`
	Snippet    string `json:"snippet"`
}

package model

// TrendingTopic is one entry of the trending-topics board. Votes counts how
// many completed debates used the topic.
type TrendingTopic struct {
	Topic    string `json:"topic"`
	Category string `json:"category"`
	Votes    int64  `json:"votes"`
}

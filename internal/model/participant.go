package model

// Participant is one configured LLM persona taking part in a debate.
// Immutable for the debate's duration; referenced by ID everywhere else.
type Participant struct {
	ID          string `toml:"id" json:"id"`
	Name        string `toml:"name" json:"name"`
	Model       string `toml:"model" json:"model"`
	Provider    string `toml:"provider" json:"provider"`
	Avatar      string `toml:"avatar" json:"avatar"`
	Color       string `toml:"color" json:"color"`
	Personality string `toml:"personality" json:"personality"`
}

// PublicParticipant is the client-facing projection sent in debate-start
// and roster listings. Personality and credentials stay server-side.
type PublicParticipant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Color  string `json:"color"`
}

func (p Participant) Public() PublicParticipant {
	return PublicParticipant{
		ID:     p.ID,
		Name:   p.Name,
		Avatar: p.Avatar,
		Color:  p.Color,
	}
}

package roster

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"llmcouncil/internal/model"
)

var (
	ErrEmptyRoster  = errors.New("roster has no participants")
	ErrDuplicateID  = errors.New("duplicate participant id in roster")
	ErrMissingField = errors.New("participant is missing a required field")
)

// Roster resolves opaque participant ids to full Participant records. It is
// loaded once at startup and read-only afterwards.
type Roster struct {
	participants []model.Participant
	byID         map[string]model.Participant
}

type rosterFile struct {
	Participants []model.Participant `toml:"participants"`
}

// Load reads the roster from a TOML file. A missing file falls back to the
// built-in default roster so the service stays usable out of the box.
func Load(path string) (*Roster, error) {
	if _, err := os.Stat(path); err != nil {
		return New(defaultParticipants())
	}

	var file rosterFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("decode roster file failed: %w", err)
	}
	return New(file.Participants)
}

// New builds a roster from an explicit participant list, validating ids.
func New(participants []model.Participant) (*Roster, error) {
	if len(participants) == 0 {
		return nil, ErrEmptyRoster
	}

	byID := make(map[string]model.Participant, len(participants))
	for _, p := range participants {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" ||
			strings.TrimSpace(p.Provider) == "" || strings.TrimSpace(p.Model) == "" {
			return nil, fmt.Errorf("%w: id=%q name=%q", ErrMissingField, p.ID, p.Name)
		}
		if _, exists := byID[p.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		byID[p.ID] = p
	}

	return &Roster{
		participants: participants,
		byID:         byID,
	}, nil
}

// All returns every participant in roster order.
func (r *Roster) All() []model.Participant {
	out := make([]model.Participant, len(r.participants))
	copy(out, r.participants)
	return out
}

// ResolveIDs maps ids to participants preserving first-occurrence order.
// Unknown and repeated ids are skipped; the caller decides whether the
// surviving count is enough.
func (r *Roster) ResolveIDs(ids []string) []model.Participant {
	resolved := make([]model.Participant, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := r.byID[id]; ok {
			resolved = append(resolved, p)
		}
	}
	return resolved
}

func defaultParticipants() []model.Participant {
	return []model.Participant{
		{
			ID:       "gemma3",
			Name:     "gemma3",
			Model:    "gemma3:1b",
			Provider: "ollama",
			Avatar:   "G",
			Color:    "#4285f4",
			Personality: "You bring a fresh perspective and often think outside the box. " +
				"You're good at making connections between different domains and offering creative solutions.",
		},
		{
			ID:       "qwen3",
			Name:     "qwen3",
			Model:    "qwen3:8b",
			Provider: "ollama",
			Avatar:   "Q",
			Color:    "#34a853",
			Personality: "You are high IQ and adaptable. You quickly assess situations and provide practical insights. " +
				"You're good at finding common ground in debates.",
		},
	}
}

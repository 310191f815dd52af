package session

import "time"

// Turn is one user/assistant exchange kept in session history.
type Turn struct {
	Timestamp   time.Time           `json:"timestamp"`
	UserMessage string              `json:"user_message"`
	BotMessage  string              `json:"bot_message"`
	Intent      string              `json:"intent"`
	Entities    map[string][]string `json:"entities,omitempty"`
	Rating      *int                `json:"rating,omitempty"`
}

// PriceRange is an inclusive price window in the shop currency.
type PriceRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Preferences is what the assistant has learned about a shopper across
// sessions. StylePreferences is reserved for a future recommendation
// signal and is carried but never written today.
type Preferences struct {
	Categories       []string   `json:"categories,omitempty"`
	Brands           []string   `json:"brands,omitempty"`
	Sizes            []string   `json:"sizes,omitempty"`
	Colors           []string   `json:"colors,omitempty"`
	PriceRange       PriceRange `json:"price_range"`
	StylePreferences []string   `json:"style_preferences,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DefaultPreferences returns the starting point for a shopper with no
// recorded history.
func DefaultPreferences() Preferences {
	return Preferences{
		PriceRange: PriceRange{Min: 0, Max: 1_000_000},
	}
}

// Session is all conversational state persisted between turns.
// Version increases monotonically and backs optimistic locking.
type Session struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	CreatedAt        time.Time         `json:"created_at"`
	LastActivity     time.Time         `json:"last_activity"`
	Version          int64             `json:"version"`
	History          []Turn            `json:"history"`
	CurrentTopic     string            `json:"current_topic,omitempty"`
	PendingQuestions []string          `json:"pending_questions,omitempty"`
	Preferences      Preferences       `json:"preferences"`
	Scratch          map[string]string `json:"scratch,omitempty"`
}

// clone deep-copies the session. Drivers hand out and store clones so a
// caller appending to its copy can never reach the stored backing arrays;
// without this a writer that loses the version race could still clobber
// the winner's committed turn through the shared History array.
func (s *Session) clone() *Session {
	cp := *s
	if s.History != nil {
		cp.History = make([]Turn, len(s.History))
		copy(cp.History, s.History)
		for i := range cp.History {
			cp.History[i].Entities = cloneEntities(cp.History[i].Entities)
		}
	}
	cp.PendingQuestions = append([]string(nil), s.PendingQuestions...)
	if s.Scratch != nil {
		cp.Scratch = make(map[string]string, len(s.Scratch))
		for k, v := range s.Scratch {
			cp.Scratch[k] = v
		}
	}
	cp.Preferences = s.Preferences.clone()
	return &cp
}

func (p Preferences) clone() Preferences {
	cp := p
	cp.Categories = append([]string(nil), p.Categories...)
	cp.Brands = append([]string(nil), p.Brands...)
	cp.Sizes = append([]string(nil), p.Sizes...)
	cp.Colors = append([]string(nil), p.Colors...)
	cp.StylePreferences = append([]string(nil), p.StylePreferences...)
	return cp
}

func cloneEntities(entities map[string][]string) map[string][]string {
	if entities == nil {
		return nil
	}
	cp := make(map[string][]string, len(entities))
	for k, v := range entities {
		cp[k] = append([]string(nil), v...)
	}
	return cp
}

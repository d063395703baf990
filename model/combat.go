package model

// Enemy is one HP card on the combat tracker. HP is the maximum; Current is
// clamped to [0, HP]. AC and Speed are optional stat-block fields.
type Enemy struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	HP      int    `json:"hp"`
	AC      *int   `json:"ac"`
	Speed   *int   `json:"speed"`
	Current int    `json:"current"`
}

// Participant types, used to pick a default color.
const (
	ParticipantPlayer = "pj"
	ParticipantAlly   = "ally"
	ParticipantEnemy  = "enemy"
)

// Participant is one entry in the initiative queue.
type Participant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Initiative int    `json:"initiative"`
	Type       string `json:"type"`
	Color      string `json:"color"`
}

// InitiativeState is the persisted initiative-queue document.
type InitiativeState struct {
	Participants []Participant `json:"participants"`
}
